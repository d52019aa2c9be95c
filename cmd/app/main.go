package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"warehouse-engine/internal/adapters/cli"
	"warehouse-engine/internal/app"
	"warehouse-engine/internal/core"
	"warehouse-engine/internal/db"

	"github.com/joho/godotenv"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: app <command> [args]

Commands:
  items [search]                              list inventory items
  item <id>                                   show one item with availability
  requests [status]                           list requests
  submit                                      submit a request (JSON on stdin)
  check <item-id> <start> <end> <qty>         check a borrow window
  approve <request-id> <approver-id>          approve a pending request
  reject <request-id> <approver-id> <reason>  reject a pending request
  return <request-id>                         mark an approved request returned
  info <item-id>                              show a stock snapshot
  refresh                                     recompute item statuses`)
	os.Exit(2)
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	recalc := core.NewStatusRecalculator()
	availabilityService := core.NewAvailabilityService(pool)
	itemService := core.NewItemService(pool, recalc)
	requestService := core.NewRequestService(pool, availabilityService)
	approvalService := core.NewApprovalService(pool, recalc)
	userService := core.NewUserService(pool)

	svc := app.NewAppService(pool, itemService, requestService, availabilityService, approvalService, userService, nil)

	cli.Run(ctx, svc, os.Args[1:])
}
