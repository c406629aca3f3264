package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mdnooraj/folio/internal/assistant"
	"github.com/mdnooraj/folio/internal/contact"
	"github.com/mdnooraj/folio/internal/profile"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profile *profile.Store
	// Contact is optional; without it the leave_message tool is not offered.
	Contact *contact.Service
	// AssistantOpts configure the throwaway widget behind the ask tool.
	AssistantOpts []assistant.Option
	Version       string
}

// NewMCPServer creates an MCP server exposing the assistant and the profile.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	s := server.NewMCPServer(
		"folio",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions(fmt.Sprintf("folio: profile of %s. Ask about skills, experience, or education.", deps.Profile.Name())),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the profile assistant a question. It answers questions mentioning skills, experience, or education."),
			mcp.WithString("question", mcp.Description("Free-text question"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("contact_info",
			mcp.WithDescription("Return the profile owner's public contact details."),
		),
		mcpContactInfo(deps),
	)

	if deps.Contact != nil {
		s.AddTool(
			mcp.NewTool("leave_message",
				mcp.WithDescription("Leave a message for the profile owner. It is stored in the local inbox."),
				mcp.WithString("name", mcp.Description("Sender name"), mcp.Required()),
				mcp.WithString("email", mcp.Description("Sender email address"), mcp.Required()),
				mcp.WithString("message", mcp.Description("Message text"), mcp.Required()),
			),
			mcpLeaveMessage(deps),
		)
	}

	s.AddResource(
		mcp.NewResource(
			"profile://record",
			"Profile Record",
			mcp.WithResourceDescription("The full profile record as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecord(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"profile://summary",
			"Profile Summary",
			mcp.WithResourceDescription("One-paragraph text summary of the profile"),
			mcp.WithMIMEType("text/plain"),
		),
		mcpResourceSummary(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		reply, err := assistant.Ask(ctx, deps.Profile, question, deps.AssistantOpts...)
		if errors.Is(err, assistant.ErrEmptyQuestion) {
			return mcpError("question is empty"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}
		return mcpText(reply), nil
	}
}

func mcpContactInfo(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rec := deps.Profile.Record()
		var lines []string
		for _, f := range []struct{ label, value string }{
			{"Name", rec.Name},
			{"Location", rec.Location},
			{"Email", rec.Email},
			{"Phone", rec.Phone},
			{"LinkedIn", rec.LinkedIn},
		} {
			if f.value != "" {
				lines = append(lines, f.label+": "+f.value)
			}
		}
		if len(lines) == 0 {
			return mcpText("No contact details available."), nil
		}
		return mcpText(strings.Join(lines, "\n")), nil
	}
}

func mcpLeaveMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sub := contact.Submission{
			Name:    req.GetString("name", ""),
			Email:   req.GetString("email", ""),
			Message: req.GetString("message", ""),
		}

		receipt, err := deps.Contact.Submit(ctx, sub, "mcp")
		var verr *contact.ValidationError
		if errors.As(err, &verr) {
			return mcpError(verr.Error()), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save message: %v", err)), nil
		}
		return mcpText(receipt.Acknowledgement), nil
	}
}

func mcpResourceRecord(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Profile.Record())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceSummary(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/plain",
				Text:     deps.Profile.Summary(),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
