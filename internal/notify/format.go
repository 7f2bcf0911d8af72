package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"hydrosnap/internal/types"
)

// Platform selects the webhook body layout.
type Platform string

const (
	PlatformGeneric Platform = "generic"
	PlatformSlack   Platform = "slack"
	PlatformDiscord Platform = "discord"
)

// Formatter renders an alert envelope for one chat platform and interprets
// that platform's response.
type Formatter interface {
	Format(msg types.AlertMessage) ([]byte, error)
	ValidateResponse(statusCode int, body []byte) error
}

var formatters = map[Platform]Formatter{
	PlatformGeneric: genericFormatter{},
	PlatformSlack:   slackFormatter{},
	PlatformDiscord: discordFormatter{},
}

// DetectPlatform returns override when it names a known platform, otherwise
// infers the platform from the webhook host. Unknown URLs get the generic
// JSON envelope.
func DetectPlatform(url, override string) Platform {
	if p := Platform(strings.ToLower(override)); p != "" {
		if _, ok := formatters[p]; ok {
			return p
		}
	}
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "hooks.slack.com"):
		return PlatformSlack
	case strings.Contains(lower, "discord.com/api/webhooks"), strings.Contains(lower, "discordapp.com/api/webhooks"):
		return PlatformDiscord
	default:
		return PlatformGeneric
	}
}

func formatterFor(p Platform) Formatter {
	if f, ok := formatters[p]; ok {
		return f
	}
	return genericFormatter{}
}

type genericFormatter struct{}

func (genericFormatter) Format(msg types.AlertMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (genericFormatter) ValidateResponse(statusCode int, _ []byte) error {
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("webhook returned %d", statusCode)
	}
	return nil
}

func alertTitle(msg types.AlertMessage) string {
	switch msg.AlertType {
	case types.AlertTypeDanger:
		return "Danger level reached"
	case types.AlertTypeWarning:
		return "Warning level reached"
	case types.AlertTypeMissedReading:
		return "Reading overdue"
	default:
		return "Site alert"
	}
}

// levelLine is empty for alerts without a reading, such as missed readings.
func levelLine(msg types.AlertMessage) string {
	if msg.WaterLevel == nil {
		return ""
	}
	if msg.ThresholdLevel == nil {
		return fmt.Sprintf("%.1f cm", *msg.WaterLevel)
	}
	return fmt.Sprintf("%.1f cm (threshold %.1f cm)", *msg.WaterLevel, *msg.ThresholdLevel)
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string       `json:"type"`
	Text     *slackText   `json:"text,omitempty"`
	Fields   []*slackText `json:"fields,omitempty"`
	Elements []*slackText `json:"elements,omitempty"`
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

// slackFormatter renders Block Kit JSON for incoming webhooks.
type slackFormatter struct{}

func (slackFormatter) Format(msg types.AlertMessage) ([]byte, error) {
	title := alertTitle(msg)
	fields := []*slackText{
		{Type: "mrkdwn", Text: "*Site*\n" + msg.SiteID},
		{Type: "mrkdwn", Text: "*Severity*\n" + string(msg.Severity)},
	}
	if lvl := levelLine(msg); lvl != "" {
		fields = append(fields, &slackText{Type: "mrkdwn", Text: "*Level*\n" + lvl})
	}

	payload := slackPayload{
		Text: fmt.Sprintf("[%s] %s", strings.ToUpper(string(msg.Urgency)), title),
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: title}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: msg.Message}},
			{Type: "section", Fields: fields},
			{Type: "context", Elements: []*slackText{{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Urgency*: %s | *Alert*: %s | HydroSnap", msg.Urgency, msg.AlertID),
			}}},
		},
	}
	return json.Marshal(payload)
}

// ValidateResponse catches Slack's soft failures, where the status is 200
// but the body is an error token or {"ok": false}.
func (slackFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("slack: unexpected status %d", statusCode)
	}
	text := strings.TrimSpace(string(body))
	if text == "" || text == "ok" {
		return nil
	}

	var resp struct {
		OK    *bool  `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.OK != nil && !*resp.OK {
			if resp.Error == "" {
				resp.Error = "unknown error"
			}
			return fmt.Errorf("slack: API error: %s", resp.Error)
		}
		return nil
	}

	switch text {
	case "no_text", "invalid_payload", "channel_not_found", "channel_is_archived", "no_service":
		return fmt.Errorf("slack: API error: %s", text)
	}
	return nil
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type discordPayload struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds"`
}

// Embed sidebar colors.
const (
	discordColorDanger  = 0xE53935
	discordColorWarning = 0xFB8C00
	discordColorInfo    = 0x1E88E5
)

type discordFormatter struct{}

func (discordFormatter) Format(msg types.AlertMessage) ([]byte, error) {
	color := discordColorInfo
	switch msg.AlertType {
	case types.AlertTypeDanger:
		color = discordColorDanger
	case types.AlertTypeWarning:
		color = discordColorWarning
	}

	fields := []discordField{
		{Name: "Site", Value: msg.SiteID, Inline: true},
		{Name: "Severity", Value: string(msg.Severity), Inline: true},
	}
	if lvl := levelLine(msg); lvl != "" {
		fields = append(fields, discordField{Name: "Level", Value: lvl, Inline: true})
	}

	embed := discordEmbed{
		Title:       alertTitle(msg),
		Description: msg.Message,
		Color:       color,
		Fields:      fields,
	}
	if !msg.CreatedAt.IsZero() {
		embed.Timestamp = msg.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return json.Marshal(discordPayload{
		Content: fmt.Sprintf("[%s] %s", strings.ToUpper(string(msg.Urgency)), alertTitle(msg)),
		Embeds:  []discordEmbed{embed},
	})
}

func (discordFormatter) ValidateResponse(statusCode int, _ []byte) error {
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("discord: unexpected status %d", statusCode)
	}
	return nil
}
