package chat

import (
	"strings"

	"github.com/janhq/reno-server/internal/domain/agent"
)

var fieldLabels = map[string]string{
	"project_scope": "what the project involves",
	"dimensions":    "the size of the space",
	"region":        "where the home is located",
	"room_id":       "which room it is for",
	"category":      "what kind of product you are after",
	"prompt":        "a short description of the look you want",
	"image_url":     "a photo of the room to restyle",
	"skill_level":   "your experience level",
}

var agentPurposes = map[string]string{
	agent.NameCost:    "put together an estimate",
	agent.NameProduct: "find products that fit",
	agent.NameDIY:     "write up a DIY guide",
	agent.NameDesign:  "create the design",
}

// Clarification renders the reply for a needs_input agent result.
func Clarification(res agent.Result) string {
	purpose, ok := agentPurposes[res.Agent]
	if !ok {
		purpose = "help with that"
	}

	labels := make([]string, 0, len(res.MissingFields))
	for _, f := range res.MissingFields {
		if label, ok := fieldLabels[f]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, strings.ReplaceAll(f, "_", " "))
		}
	}

	var b strings.Builder
	b.WriteString("To ")
	b.WriteString(purpose)
	b.WriteString(", I need a bit more information")
	if len(labels) > 0 {
		b.WriteString(": ")
		b.WriteString(joinList(labels))
	}
	b.WriteString(".")
	for _, q := range res.FollowUps {
		b.WriteString("\n- ")
		b.WriteString(q)
	}
	return b.String()
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
