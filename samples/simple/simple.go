package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/model"
	"github.com/simple-workflow/swf/provider/memory"
)

func main() {
	ctx := context.Background()

	mp := memory.NewMemoryProvider()
	defer mp.Close()

	if err := mp.CreateDomain(ctx, "samples"); err != nil {
		panic(err)
	}

	wt, err := model.NewWorkflowType(mp, "samples", "ProcessOrder", "1.0",
		model.WithTypeTaskList("orders"),
		model.WithTypeDescription("processes a single order"),
	)
	if err != nil {
		panic(err)
	}

	// The type only exists locally until saved
	exists, err := wt.Exists(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println("exists before save:", exists)

	if err := wt.Save(ctx); err != nil {
		panic(err)
	}

	synced, err := wt.IsSynced(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println("synced after save:", synced)

	we, err := wt.StartExecution(ctx, model.StartExecutionOptions{
		Input:   map[string]any{"order": 42},
		TagList: []string{"sample"},
	})
	if err != nil {
		panic(err)
	}
	fmt.Println("started execution:", we)

	// Close the execution out of band, as the remote service would when the
	// workflow finishes
	if err := mp.CompleteWorkflowExecution(ctx, we.Domain, we.RunID, we.WorkflowID, core.CloseStatusCompleted); err != nil {
		panic(err)
	}

	if err := we.WaitForClose(ctx, time.Second*10); err != nil {
		log.Fatal(err)
	}

	h, err := we.History(ctx)
	if err != nil {
		panic(err)
	}

	for _, event := range h.Events() {
		fmt.Printf("  %d %s\n", event.EventID, event.Type)
	}

	if closeStatus, ok := h.CloseStatus(); ok {
		fmt.Println("close status:", closeStatus)
	}
}
