package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"invoice-agent/internal/core"

	"github.com/openai/openai-go/option"
)

func TestSessionNeedsReset(t *testing.T) {
	issuer := core.DefaultIssuer()
	sess := NewSession(issuer)

	if sess.NeedsReset(issuer) {
		t.Error("unchanged issuer should not force a reset")
	}

	changed := issuer
	changed.TaxRate = 10
	if !sess.NeedsReset(changed) {
		t.Error("changed tax rate should force a reset")
	}

	renamed := issuer
	renamed.Name = "Other SAC"
	if !sess.NeedsReset(renamed) {
		t.Error("changed name should force a reset")
	}
}

func TestInstructions(t *testing.T) {
	issuer := core.Issuer{
		Name:     "EMPRESA SAC",
		TaxID:    "20123456789",
		Address:  "Av. Principal 123, Lima",
		Currency: "PEN",
		TaxRate:  18,
	}
	got := instructions(issuer)

	for _, want := range []string{"EMPRESA SAC", "20123456789", "PEN", "18%", UpdateInvoiceTool, "8 digits", "11 digits"} {
		if !strings.Contains(got, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}

func TestInstructions_ZeroRateUsesDefault(t *testing.T) {
	issuer := core.DefaultIssuer()
	issuer.TaxRate = 0
	if got := instructions(issuer); !strings.Contains(got, "18%") {
		t.Errorf("zero configured rate should render the default, got: %s", got)
	}
}

func TestVerdict(t *testing.T) {
	empty := core.Invoice{}
	if got := verdict(empty); !strings.Contains(got, "Missing: client name, client document number, at least one item") {
		t.Errorf("empty draft verdict = %q", got)
	}

	partial := core.Invoice{Client: core.Client{Name: "Juan Perez"}}
	if got := verdict(partial); !strings.Contains(got, "Missing: client document number, at least one item") {
		t.Errorf("partial draft verdict = %q", got)
	}

	ready := core.Invoice{
		Client: core.Client{Name: "Juan Perez", DocumentNumber: "12345678"},
		Items: []core.LineItem{{
			Description: "Consulting",
		}},
	}
	if got := verdict(ready); !strings.Contains(got, "ready to issue") {
		t.Errorf("ready draft verdict = %q", got)
	}
}

// scriptedAgent serves canned Responses API payloads, in order, from a
// local endpoint.
func scriptedAgent(t *testing.T, bodies ...string) *Agent {
	t.Helper()
	var step int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if step >= len(bodies) {
			t.Errorf("unexpected request %d", step+1)
			http.Error(w, "no more responses", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, bodies[step])
		step++
	}))
	t.Cleanup(srv.Close)

	a, err := NewAgent("sk-test", "gpt-4o", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return a
}

func TestSendTurn_ConcludingMessageSupersedesPreToolText(t *testing.T) {
	first := `{"id":"resp_1","object":"response","output":[
		{"type":"message","id":"msg_1","role":"assistant","status":"completed",
		 "content":[{"type":"output_text","text":"Let me record that.","annotations":[]}]},
		{"type":"function_call","id":"fc_1","call_id":"call_1","name":"update_invoice",
		 "arguments":"{\"client\":{\"name\":\"Juan Perez\"}}","status":"completed"}
	]}`
	// Empty concluding turn: the pre-tool fragment must not leak through.
	second := `{"id":"resp_2","object":"response","output":[]}`

	a := scriptedAgent(t, first, second)
	sess := NewSession(core.DefaultIssuer())

	result, updated, err := a.SendTurn(context.Background(), sess, "bill Juan Perez", core.Invoice{})
	if err != nil {
		t.Fatalf("SendTurn: %v", err)
	}
	if result.Text != ReplyDataUpdated {
		t.Errorf("text = %q, want canned %q", result.Text, ReplyDataUpdated)
	}
	if result.Extraction == nil || result.Extraction.Client == nil || result.Extraction.Client.Name != "Juan Perez" {
		t.Errorf("extraction = %+v", result.Extraction)
	}
	if updated.lastResponseID != "resp_2" {
		t.Errorf("session response id = %q", updated.lastResponseID)
	}
}

func TestSendTurn_ConcludingMessageReplacesFragment(t *testing.T) {
	first := `{"id":"resp_1","object":"response","output":[
		{"type":"message","id":"msg_1","role":"assistant","status":"completed",
		 "content":[{"type":"output_text","text":"One moment.","annotations":[]}]},
		{"type":"function_call","id":"fc_1","call_id":"call_1","name":"update_invoice",
		 "arguments":"{\"items\":[{\"description\":\"Consulting\",\"quantity\":1,\"unit_price\":100}]}","status":"completed"}
	]}`
	second := `{"id":"resp_2","object":"response","output":[
		{"type":"message","id":"msg_2","role":"assistant","status":"completed",
		 "content":[{"type":"output_text","text":"Added consulting. Who is the client?","annotations":[]}]}
	]}`

	a := scriptedAgent(t, first, second)

	result, _, err := a.SendTurn(context.Background(), NewSession(core.DefaultIssuer()), "add consulting", core.Invoice{})
	if err != nil {
		t.Fatalf("SendTurn: %v", err)
	}
	if result.Text != "Added consulting. Who is the client?" {
		t.Errorf("text = %q, pre-tool fragment should be superseded", result.Text)
	}
	if len(result.Extraction.Items) != 1 {
		t.Errorf("extraction items = %+v", result.Extraction)
	}
}

func TestNewAgent_RequiresKey(t *testing.T) {
	if _, err := NewAgent("", "gpt-4o"); err == nil {
		t.Error("empty API key should be rejected")
	}
	a, err := NewAgent("sk-test", "")
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	if a.model != DefaultModel {
		t.Errorf("model = %q, want default %q", a.model, DefaultModel)
	}
}
