// Package main runs a headless simulation for a number of in-game years and
// prints a league table. Useful for balancing the economy without a client.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/openskies-sim/airtycoon/internal/domain/catalog"
	"github.com/openskies-sim/airtycoon/internal/domain/company"
	"github.com/openskies-sim/airtycoon/internal/engine"
	"github.com/openskies-sim/airtycoon/internal/events"
	"github.com/openskies-sim/airtycoon/internal/platform/logger"
)

func main() {
	years := flag.Int("years", 10, "in-game years to simulate")
	seed := flag.Int64("seed", 1, "world seed (same seed, same history)")
	catalogDir := flag.String("catalog", "", "catalog directory (empty = built-in)")
	verbose := flag.Bool("v", false, "log engine activity")
	flag.Parse()

	cat := catalog.Builtin()
	if *catalogDir != "" {
		loaded, err := catalog.Load(*catalogDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load catalog: %v\n", err)
			os.Exit(1)
		}
		cat = loaded
	}

	log := logger.NewNop()
	if *verbose {
		log = logger.New(logger.Config{Level: "debug"})
	}

	auditLog := events.NewLog(nil)
	cfg := engine.DefaultConfig()
	cfg.Seed = *seed
	sim := engine.New(cat, cfg, log, auditLog)

	// All airlines autonomous: catalog events resolve themselves and the
	// calendar never freezes on a player choice.
	sim.AddCompany(company.New("transglobal", "TransGlobal", "NYC", 2000000))
	sim.AddCompany(company.New("atlantic", "Atlantic Star", "LON", 2000000))
	sim.AddCompany(company.New("pacifica", "Pacifica Air", "TYO", 2000000))
	sim.AddCompany(company.New("meridian", "Meridian Lines", "RIO", 2000000))

	days := *years * 365
	start := time.Now()
	for i := 0; i < days; i++ {
		sim.Advance(cfg.MSPerDay)
		if sim.Paused() {
			fmt.Fprintf(os.Stderr, "simulation auto-paused on %s, aborting\n",
				sim.Date().Format("2006-01-02"))
			os.Exit(1)
		}
	}
	elapsed := time.Since(start)

	companies := sim.Companies()
	sort.Slice(companies, func(i, j int) bool {
		return companies[i].Money > companies[j].Money
	})

	fmt.Printf("Simulated %s in-game days in %s (%s audit events)\n\n",
		humanize.Comma(int64(days)), elapsed.Round(time.Millisecond),
		humanize.Comma(int64(auditLog.Len())))
	fmt.Printf("League table, %s:\n", sim.Date().Format("January 2006"))
	fmt.Printf("%-4s %-20s %14s %6s %7s %6s\n", "#", "Airline", "Cash", "Fame", "Routes", "Fleet")
	for i, c := range companies {
		fleet := 0
		for _, n := range c.Fleet {
			fleet += n
		}
		fmt.Printf("%-4d %-20s %14s %6.1f %7d %6d\n",
			i+1, c.Name, "$"+humanize.CommafWithDigits(c.Money, 0), c.Fame, len(c.Routes), fleet)
	}
}
