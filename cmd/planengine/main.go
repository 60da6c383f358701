package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/windmark/itinerary-engine/bootstrap"
	"github.com/windmark/itinerary-engine/config"
	"github.com/windmark/itinerary-engine/domain"
	"github.com/windmark/itinerary-engine/runctx"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Println("\nProgram terminated externally. Exiting...")
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app, err := bootstrap.Setup(ctx, cfg)
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}

	req := sampleRequest()
	traceID := runctx.NewRunID()
	log.Printf("Running Plan for city=%s trace=%s", req.City, traceID)

	itinerary, err := app.Engine.Plan(ctx, traceID, req)
	if err != nil {
		log.Fatalf("Plan failed: %v", err)
	}

	log.Println("\n---------------------------------------------------")
	log.Printf("Itinerary for %s: %d day(s), total %d cents", req.City, len(itinerary.Days), itinerary.CostBreakdown.TotalCents)
	for _, day := range itinerary.Days {
		fmt.Printf("\n%s\n", day.Date.Format("2006-01-02"))
		for _, a := range day.Activities {
			fmt.Printf("  %s - %s: %s ($%.2f)\n",
				a.Window.StartUTC.Format("15:04"), a.Window.EndUTC.Format("15:04"), a.Name, float64(a.CostCents)/100)
		}
	}
	log.Println("---------------------------------------------------")
}

func sampleRequest() domain.Request {
	start := time.Now().AddDate(0, 0, 14).Truncate(24 * time.Hour)
	return domain.Request{
		City:        "Paris",
		Window:      domain.Window{StartUTC: start, EndUTC: start.AddDate(0, 0, 3), TZ: "Europe/Paris"},
		BudgetCents: 250000,
		Airports:    []string{"JFK"},
		Prefs: domain.Prefs{
			KidFriendly: false,
			Themes:      map[string]bool{"art": true, "food": true},
		},
	}
}
