package ai

import (
	"context"
	"fmt"
	"strings"

	"invoice-agent/internal/core"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// Canned replies surfaced when the model's own text is unusable. The app
// layer reuses ReplyApology for failed turns so the transcript stays coherent.
const (
	ReplyDataUpdated = "Invoice data updated."
	ReplyUnderstood  = "Understood."
	ReplyApology     = "Sorry, something went wrong processing your request. Please try again."
)

// maxToolRounds caps the tool round-trips within a single user turn. The
// protocol expects one; the cap keeps a misbehaving model from looping.
const maxToolRounds = 4

// Agent talks to the OpenAI Responses API. One Agent serves any number of
// sessions; it holds no per-conversation state.
type Agent struct {
	client *openai.Client
	model  string
}

func NewAgent(apiKey, model string, opts ...option.RequestOption) (*Agent, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not set")
	}
	if model == "" {
		model = DefaultModel
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Agent{client: &client, model: model}, nil
}

// Session is the conversational state for one issuer configuration. It is a
// small value: callers pass it into SendTurn and keep the returned copy.
// Conversation memory lives host-side, addressed by the last response ID.
type Session struct {
	issuer         core.Issuer
	lastResponseID string
}

// NewSession starts a fresh conversation bound to the given issuer snapshot.
func NewSession(issuer core.Issuer) Session {
	return Session{issuer: issuer}
}

// NeedsReset reports whether the issuer configuration has drifted from the
// one this session was started with. A changed configuration invalidates the
// instructions baked into the conversation, so the caller must start over.
func (s Session) NeedsReset(issuer core.Issuer) bool {
	return s.issuer != issuer
}

// TurnResult is the outcome of one user turn: the assistant text to show and
// the structured data extracted via tool calls, if any.
type TurnResult struct {
	Text       string
	Extraction *core.Extraction
}

// instructions renders the system prompt for an issuer. The issuer identity
// is fixed here, so the model never asks the user for it.
func instructions(issuer core.Issuer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an invoicing assistant for %s (tax ID %s, %s). ", issuer.Name, issuer.TaxID, issuer.Address)
	fmt.Fprintf(&b, "You help the user build one invoice draft at a time, in %s, with a %.6g%% tax rate applied on top of unit prices.\n\n", issuer.Currency, issuer.EffectiveTaxRate())
	b.WriteString("Rules:\n")
	b.WriteString("- Whenever the user provides client data or products, call " + UpdateInvoiceTool + " immediately with exactly what was provided. Partial data is expected; never wait to collect everything first.\n")
	b.WriteString("- Only include fields the user actually mentioned. Never invent or guess values.\n")
	b.WriteString("- Items accumulate: send only new products, never ones already captured.\n")
	b.WriteString("- Document numbers: a natural person document has 8 digits, a legal entity document has 11 digits. If the number the user gives does not match, warn them but record it anyway.\n")
	b.WriteString("- The issuer details above are fixed configuration. Never ask the user for them.\n")
	b.WriteString("- After a tool result, tell the user what was recorded and, if the result lists missing fields, ask for those and nothing else.\n")
	b.WriteString("- Reply in the language the user writes in. Keep replies short.")
	return b.String()
}

// verdict turns a prospective reconciliation into the tool-result text. The
// model sees this and relays it to the user, so it names the fields in the
// order the user should supply them.
func verdict(prospective core.Invoice) string {
	missing := core.MissingFields(prospective)
	if len(missing) == 0 {
		return "All required data is present. Confirm to the user that the invoice is ready to issue."
	}
	return "Missing: " + strings.Join(missing, ", ") + ". Ask the user for these fields."
}

// SendTurn runs one user turn: it sends the text, answers any tool calls
// with a reconciliation verdict computed against the current draft, and
// returns the concluding assistant text plus the accumulated extraction.
// On error the session is returned unchanged so the turn can be retried.
func (a *Agent) SendTurn(ctx context.Context, sess Session, userText string, current core.Invoice) (TurnResult, Session, error) {
	tools, err := invoiceTools()
	if err != nil {
		return TurnResult{}, sess, err
	}

	params := responses.ResponseNewParams{
		Model:        shared.ResponsesModel(a.model),
		Instructions: param.NewOpt(instructions(sess.issuer)),
		Tools:        tools,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(userText),
		},
	}
	if sess.lastResponseID != "" {
		params.PreviousResponseID = param.NewOpt(sess.lastResponseID)
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return TurnResult{}, sess, fmt.Errorf("model request failed: %w", err)
	}

	var (
		text    = resp.OutputText()
		pending *core.Extraction
	)

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}

		// All arguments from this round merge into one pending extraction;
		// the verdict is computed once against the would-be result and every
		// call receives the same answer.
		for _, call := range calls {
			ext, err := decodeToolArgs(call.Arguments)
			if err != nil {
				return TurnResult{}, sess, err
			}
			pending = mergeExtractions(pending, ext)
		}

		answer := verdict(core.Prospective(current, pending))
		outputs := make(responses.ResponseInputParam, 0, len(calls))
		for _, call := range calls {
			outputs = append(outputs, responses.ResponseInputItemParamOfFunctionCallOutput(call.CallID, answer))
		}

		resp, err = a.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:              shared.ResponsesModel(a.model),
			Instructions:       param.NewOpt(instructions(sess.issuer)),
			Tools:              tools,
			PreviousResponseID: param.NewOpt(resp.ID),
			Input: responses.ResponseNewParamsInputUnion{
				OfInputItemList: outputs,
			},
		})
		if err != nil {
			return TurnResult{}, sess, fmt.Errorf("tool result delivery failed: %w", err)
		}
		// The concluding message after the round-trip supersedes any text
		// emitted alongside the calls, even when it is empty; the canned
		// replies below cover the empty case.
		text = resp.OutputText()
	}

	if text == "" {
		if pending != nil && !pending.IsEmpty() {
			text = ReplyDataUpdated
		} else {
			text = ReplyUnderstood
		}
	}
	if pending != nil && pending.IsEmpty() {
		pending = nil
	}

	sess.lastResponseID = resp.ID
	return TurnResult{Text: text, Extraction: pending}, sess, nil
}

func functionCalls(resp *responses.Response) []responses.ResponseFunctionToolCall {
	var calls []responses.ResponseFunctionToolCall
	for _, item := range resp.Output {
		if item.Type == "function_call" {
			calls = append(calls, item.AsFunctionCall())
		}
	}
	return calls
}
