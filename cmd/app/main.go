package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"invoice-agent/internal/ai"
	"invoice-agent/internal/app"
	"invoice-agent/internal/config"
	"invoice-agent/internal/core"
	"invoice-agent/internal/render"
	"invoice-agent/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	ctx := context.Background()

	fs, err := store.NewFileStore(cfg.StateFile)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	agent, err := ai.NewAgent(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	svc, err := app.NewSessionService(ctx, fs, agent)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	fmt.Println("Invoice assistant. Type your request, or /help for commands.")
	fmt.Println()
	fmt.Println("assistant:", app.Greeting)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, svc, line); quit {
				return
			}
			continue
		}

		reply, err := svc.SendMessage(ctx, line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Println("assistant:", reply.Text)
		printStatus(svc.CurrentInvoice())
	}
}

// runCommand handles slash commands; returns true on /exit.
func runCommand(ctx context.Context, svc app.ApplicationService, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Println(`Commands:
  /show           print the current draft
  /save           finalize and save the draft
  /new            discard the draft and start over
  /history        list saved invoices
  /load REF       show a saved invoice (read-only), e.g. /load F001-00001234
  /pdf FILE       write the current draft as a PDF
  /company        show issuer settings
  /exit           quit`)
	case "/show":
		printInvoice(svc.CurrentInvoice())
	case "/save":
		saved, err := svc.SaveInvoice(ctx)
		if errors.Is(err, app.ErrNotReady) {
			fmt.Println("Not yet:", err)
			return false
		}
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Printf("Saved %s. Starting a new draft.\n", saved.Invoice.Reference())
	case "/new":
		if err := svc.Reset(ctx); err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Println("Draft discarded.")
		fmt.Println("assistant:", app.Greeting)
	case "/history":
		entries := svc.History()
		if len(entries) == 0 {
			fmt.Println("No saved invoices yet.")
			return false
		}
		for _, e := range entries {
			fmt.Printf("  %s  %s  %-30s %s\n",
				e.SavedAt.Format("2006-01-02"),
				e.Invoice.Reference(),
				e.Invoice.Client.Name,
				render.FormatAmount(e.Invoice.Issuer.Currency, e.Invoice.Total()))
		}
	case "/load":
		if len(fields) < 2 {
			fmt.Println("usage: /load REF")
			return false
		}
		ref := fields[1]
		for _, e := range svc.History() {
			if e.Invoice.Reference() == ref {
				saved, err := svc.LoadFromHistory(e.ID)
				if err != nil {
					fmt.Println("error:", err)
					return false
				}
				printInvoice(saved.Invoice)
				fmt.Println("(read-only; /new to go back to drafting)")
				return false
			}
		}
		fmt.Println("No saved invoice", ref)
	case "/pdf":
		if len(fields) < 2 {
			fmt.Println("usage: /pdf FILE")
			return false
		}
		raw, err := render.PDF(svc.CurrentInvoice())
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		if err := os.WriteFile(fields[1], raw, 0o644); err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Println("Wrote", fields[1])
	case "/company":
		issuer := svc.Issuer()
		fmt.Printf("  %s\n  Tax ID: %s\n  %s\n  Currency: %s, tax rate %.6g%%\n",
			issuer.Name, issuer.TaxID, issuer.Address, issuer.Currency, issuer.EffectiveTaxRate())
	case "/exit", "/quit":
		return true
	default:
		fmt.Println("Unknown command. Try /help.")
	}
	return false
}

func printStatus(inv core.Invoice) {
	if missing := core.MissingFields(inv); len(missing) > 0 {
		fmt.Println("  [draft missing:", strings.Join(missing, ", ")+"]")
		return
	}
	fmt.Printf("  [draft %s ready, total %s; /save to finalize]\n",
		inv.Reference(), render.FormatAmount(inv.Issuer.Currency, inv.Total()))
}

func printInvoice(inv core.Invoice) {
	fmt.Printf("%s  (%s)\n", inv.Reference(), inv.IssueDate)
	fmt.Printf("Client: %s  %s %s\n", inv.Client.Name, inv.Client.DocumentType, inv.Client.DocumentNumber)
	if len(inv.Items) == 0 {
		fmt.Println("  (no items)")
	}
	for _, it := range inv.Items {
		fmt.Printf("  %-30s %6s x %10s = %10s\n",
			it.Description, render.FormatQuantity(it.Quantity), it.UnitPrice.StringFixed(2), it.Total().StringFixed(2))
	}
	fmt.Printf("Subtotal: %s\n", render.FormatAmount(inv.Issuer.Currency, inv.Subtotal()))
	fmt.Printf("Tax (%.6g%%): %s\n", inv.Issuer.EffectiveTaxRate(), render.FormatAmount(inv.Issuer.Currency, inv.Tax()))
	fmt.Printf("Total: %s\n", render.FormatAmount(inv.Issuer.Currency, inv.Total()))
}
