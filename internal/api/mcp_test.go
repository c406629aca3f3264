package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mdnooraj/folio/internal/assistant"
	"github.com/mdnooraj/folio/internal/contact"
	"github.com/mdnooraj/folio/internal/profile"
	"github.com/mdnooraj/folio/internal/storage"
)

// --- helpers ---

func testProfile() *profile.Store {
	return profile.NewStore(&profile.Record{
		Name:     "Ada Lovelace",
		Title:    "Analyst",
		Location: "London",
		Email:    "ada@example.com",
		LinkedIn: "https://linkedin.com/in/ada",
		Experience: []profile.Experience{
			{Role: "Programmer", Company: "Babbage", From: "1842"},
		},
		Education: []profile.Education{
			{Degree: "Tutoring", School: "Home", Year: "1830"},
		},
		Skills: profile.Skills{Core: []string{"Math"}, Technical: []string{"Cards"}},
	})
}

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return MCPDeps{
		Profile:       testProfile(),
		Contact:       contact.NewService(store, nil, nil),
		AssistantOpts: []assistant.Option{assistant.WithDelay(0)},
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_Ask(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpAsk(deps)

	tests := map[string]string{
		"What SKILLS?":         "Math, Cards",
		"your experience":      "Programmer at Babbage (1842)",
		"education background": "Tutoring from Home (1830)",
		"hello":                assistant.DefaultFallback,
	}
	for q, want := range tests {
		result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{"question": q}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %s", toolText(t, result))
		}
		if got := toolText(t, result); got != want {
			t.Errorf("ask(%q) = %q, want %q", q, got, want)
		}
	}
}

func TestMCPTool_Ask_Invalid(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpAsk(deps)

	for _, args := range []map[string]interface{}{{}, {"question": "   "}} {
		result, err := handler(context.Background(), makeCallToolRequest("ask", args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("args %v: expected tool error, got %q", args, toolText(t, result))
		}
	}
}

func TestMCPTool_ContactInfo(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	result, err := mcpContactInfo(deps)(context.Background(), makeCallToolRequest("contact_info", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := toolText(t, result)
	for _, want := range []string{"Name: Ada Lovelace", "Email: ada@example.com", "LinkedIn: https://linkedin.com/in/ada"} {
		if !strings.Contains(text, want) {
			t.Errorf("contact_info missing %q in %q", want, text)
		}
	}
	if strings.Contains(text, "Phone") {
		t.Error("empty phone should be omitted")
	}
}

func TestMCPTool_ContactInfo_EmptyProfile(t *testing.T) {
	deps := MCPDeps{}
	result, err := mcpContactInfo(deps)(context.Background(), makeCallToolRequest("contact_info", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); got != "No contact details available." {
		t.Errorf("got %q", got)
	}
}

func TestMCPTool_LeaveMessage(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpLeaveMessage(deps)

	result, err := handler(context.Background(), makeCallToolRequest("leave_message", map[string]interface{}{
		"name":    "Bob",
		"email":   "bob@example.com",
		"message": "Let's talk",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "Thank you, Bob! Your message has been received." {
		t.Errorf("ack = %q", got)
	}

	msgs, err := store.ListContactMessages(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(msgs) != 1 || msgs[0].RemoteAddr != "mcp" {
		t.Errorf("stored = %+v", msgs)
	}
}

func TestMCPTool_LeaveMessage_Invalid(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	result, err := mcpLeaveMessage(deps)(context.Background(), makeCallToolRequest("leave_message", map[string]interface{}{
		"name":  "Bob",
		"email": "nope",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if n, _ := store.CountContactMessages(context.Background()); n != 0 {
		t.Errorf("invalid message stored (%d)", n)
	}
}

func TestMCPResource_Record(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	contents, err := mcpResourceRecord(deps)(context.Background(), makeReadResourceRequest("profile://record"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.MIMEType != "application/json" || tc.URI != "profile://record" {
		t.Errorf("contents = %+v", tc)
	}

	var rec profile.Record
	if err := json.Unmarshal([]byte(tc.Text), &rec); err != nil {
		t.Fatalf("parsing record: %v", err)
	}
	if rec.Name != "Ada Lovelace" || len(rec.Experience) != 1 {
		t.Errorf("record = %+v", rec)
	}
}

func TestMCPResource_Summary(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	contents, err := mcpResourceSummary(deps)(context.Background(), makeReadResourceRequest("profile://summary"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if !strings.Contains(tc.Text, "Ada Lovelace") {
		t.Errorf("summary = %q", tc.Text)
	}
}

func TestNewMCPServer_RegistersTools(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("nil server")
	}
	deps.Contact = nil
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("nil server without contact")
	}
}

func TestMCPServer_ConcurrentAsks(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpAsk(deps)

	var wg sync.WaitGroup
	errs := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{"question": "skills"}))
			if err != nil {
				errs <- err.Error()
				return
			}
			if text := result.Content[0].(mcp.TextContent).Text; text != "Math, Cards" {
				errs <- text
			}
		}()
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Errorf("concurrent ask failed: %s", e)
	}
}
