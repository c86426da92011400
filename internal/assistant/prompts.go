package assistant

import "strings"

const breakdownSystem = `You are an assistant that helps a user break a weekly priority into 3-5 actionable steps.

You receive the user's priority and their role in the company. Produce a
list of clear, concise action items the user can take to achieve the
priority, taking role and responsibilities into account.

Reply ONLY with a JSON object of the form:
{"actionable_steps": ["...", "..."]}
No extra text.`

const adviceSystem = `You are an assistant that gives tailored advice about a weekly plan.

You receive the user's role, their priorities for the week, what they
achieved, and what blocked them. Advise on how to approach the open items
and get past the blockages, tailored to the role.

Reply ONLY with a JSON object of the form:
{"advice": "..."}
No extra text.`

const motivationSystem = `You are an assistant that provides positive reinforcement. The user has
just completed every priority for the week.

Write a short, uplifting, personalized message congratulating them, based
on their role and what they accomplished, and encourage them to keep it up.

Reply ONLY with a JSON object of the form:
{"message": "..."}
No extra text.`

func buildBreakdownPrompt(role, priority string) string {
	var b strings.Builder
	b.WriteString("priority: ")
	b.WriteString(priority)
	b.WriteString("\nrole: ")
	b.WriteString(role)
	b.WriteString("\n")
	return b.String()
}

func buildAdvicePrompt(role string, priorities, achieved, blockages []string) string {
	var b strings.Builder
	b.WriteString("role: ")
	b.WriteString(role)
	b.WriteString("\npriorities: ")
	b.WriteString(joinOrNone(priorities))
	b.WriteString("\nachieved: ")
	b.WriteString(joinOrNone(achieved))
	b.WriteString("\nblockages: ")
	b.WriteString(joinOrNone(blockages))
	b.WriteString("\n")
	return b.String()
}

func buildMotivationPrompt(role string, completed []string) string {
	var b strings.Builder
	b.WriteString("role: ")
	b.WriteString(role)
	b.WriteString("\ncompleted_priorities: ")
	b.WriteString(joinOrNone(completed))
	b.WriteString("\n")
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, "; ")
}
