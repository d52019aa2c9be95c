package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"warehouse-engine/internal/app"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:], so the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	switch args[0] {
	case "items", "ls":
		search := ""
		if len(args) > 1 {
			search = args[1]
		}
		result, err := svc.ListItems(ctx, "", search)
		if err != nil {
			log.Fatalf("Failed to list items: %v", err)
		}
		printItems(result)

	case "item", "i":
		if len(args) < 2 {
			log.Fatal("Usage: app item <id>")
		}
		result, err := svc.GetItem(ctx, atoiArg(args[1], "item id"))
		if err != nil {
			log.Fatalf("Failed to get item: %v", err)
		}
		printJSON(result)

	case "requests", "reqs":
		filter := app.ListRequestsFilter{}
		if len(args) > 1 {
			filter.Status = args[1]
		}
		result, err := svc.ListRequests(ctx, filter)
		if err != nil {
			log.Fatalf("Failed to list requests: %v", err)
		}
		printRequests(result)

	case "submit":
		var req app.SubmitRequestRequest
		if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
			log.Fatalf("Invalid JSON: %v", err)
		}
		result, err := svc.SubmitRequest(ctx, req)
		if err != nil {
			log.Fatalf("Submission failed: %v", err)
		}
		if !result.Accepted {
			fmt.Fprintln(os.Stderr, "Refused:", result.Message)
			printJSON(result.Check)
			os.Exit(1)
		}
		fmt.Println(result.Message)
		printJSON(result.Request)

	case "check":
		if len(args) < 5 {
			log.Fatal("Usage: app check <item-id> <start YYYY-MM-DD> <end YYYY-MM-DD> <qty>")
		}
		start, end := dateArg(args[2], "start"), dateArg(args[3], "end")
		check, err := svc.CheckAvailability(ctx, atoiArg(args[1], "item id"), start, end, atoiArg(args[4], "quantity"))
		if err != nil {
			log.Fatalf("Availability check failed: %v", err)
		}
		printJSON(check)

	case "approve":
		if len(args) < 3 {
			log.Fatal("Usage: app approve <request-id> <approver-id>")
		}
		result, err := svc.ApproveRequest(ctx, atoiArg(args[1], "request id"), atoiArg(args[2], "approver id"))
		if err != nil {
			log.Fatalf("Approval failed: %v", err)
		}
		if !result.Success {
			fmt.Fprintln(os.Stderr, "Refused:", result.Message)
			os.Exit(1)
		}
		fmt.Println(result.Message)
		for _, rej := range result.RejectedRequests {
			fmt.Printf("  auto-rejected request #%d (%s, qty %d)\n", rej.ID, rej.RequesterName, rej.QuantityRequested)
		}

	case "reject":
		if len(args) < 4 {
			log.Fatal("Usage: app reject <request-id> <approver-id> \"<reason>\"")
		}
		result, err := svc.RejectRequest(ctx, atoiArg(args[1], "request id"), atoiArg(args[2], "approver id"), args[3])
		if err != nil {
			log.Fatalf("Rejection failed: %v", err)
		}
		fmt.Println(result.Message)

	case "return", "ret":
		if len(args) < 2 {
			log.Fatal("Usage: app return <request-id>")
		}
		result, err := svc.MarkReturned(ctx, atoiArg(args[1], "request id"))
		if err != nil {
			log.Fatalf("Return failed: %v", err)
		}
		fmt.Println(result.Message)

	case "info":
		if len(args) < 2 {
			log.Fatal("Usage: app info <item-id>")
		}
		info, err := svc.GetItemAvailabilityInfo(ctx, atoiArg(args[1], "item id"))
		if err != nil {
			log.Fatalf("Failed to get availability info: %v", err)
		}
		printJSON(info)

	case "refresh":
		n, err := svc.RefreshItemStatuses(ctx)
		if err != nil {
			log.Fatalf("Status refresh failed: %v", err)
		}
		fmt.Printf("Recomputed status of %d item(s).\n", n)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: items, item, requests, submit, check, approve, reject, return, info, refresh", args[0])
	}
}

func atoiArg(s, what string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("Invalid %s: %s", what, s)
	}
	return n
}

func dateArg(s, what string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Fatalf("Invalid %s date (want YYYY-MM-DD): %s", what, s)
	}
	return t
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printItems(result *app.ItemListResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("  %-68s\n", "INVENTORY")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("  %-5s %-18s %-26s %5s %-13s\n", "ID", "SKU", "NAME", "QTY", "STATUS")
	fmt.Println(strings.Repeat("-", 72))
	for _, it := range result.Items {
		fmt.Printf("  %-5d %-18s %-26s %5d %-13s\n", it.ID, it.SKU, it.Name, it.Quantity, it.Status)
	}
	fmt.Println(strings.Repeat("=", 72))
}

func printRequests(result *app.RequestListResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-74s\n", "REQUESTS")
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-5s %-16s %-16s %5s %-10s %-23s\n", "ID", "REQUESTER", "TYPE", "QTY", "STATUS", "WINDOW")
	fmt.Println(strings.Repeat("-", 78))
	for _, r := range result.Requests {
		window := ""
		if r.StartDate != nil && r.EndDate != nil {
			window = r.StartDate.Format("2006-01-02") + " to " + r.EndDate.Format("2006-01-02")
		}
		fmt.Printf("  %-5d %-16s %-16s %5d %-10s %-23s\n",
			r.ID, r.RequesterName, r.Type, r.QuantityRequested, r.Status, window)
	}
	fmt.Println(strings.Repeat("=", 78))
}
