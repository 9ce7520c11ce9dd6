// Command crcsim runs a colorectal cancer natural-history microsimulation
// over a cohort: a flag-parsed seed and thread count, a positional config
// path, and a choice of output backend.
package main

import (
	"flag"
	"log"
	"runtime"
	"time"

	"github.com/RTIInternational/crcsim"
)

func main() {
	numCPU := flag.Int("threads", runtime.NumCPU(), "number of CPU threads")
	loggerType := flag.String("logger", "csv", "data logger type (csv|sqlite)")
	outPath := flag.String("out", "crcsim.out", "output path (file for csv, database for sqlite)")
	cohortPath := flag.String("cohort", "", "path to cohort CSV file (id,sex,race_ethnicity)")
	seed := flag.Int64("seed", time.Now().UTC().UnixNano(), "random seed; defaults to current Unix time in nanoseconds")
	npeople := flag.Int("npeople", 0, "number of cohort rows to simulate; 0 means the whole cohort")
	flag.Parse()

	runtime.GOMAXPROCS(*numCPU)

	paramsPath := flag.Arg(0)
	if paramsPath == "" || *cohortPath == "" {
		log.Fatal("usage: crcsim [flags] -cohort <cohort.csv> <params.toml>")
	}

	params, err := crcsim.LoadParameters(paramsPath)
	if err != nil {
		log.Fatal(err)
	}

	cohort, err := crcsim.LoadCohort(*cohortPath)
	if err != nil {
		log.Fatal(err)
	}
	if *npeople > 0 && *npeople < len(cohort) {
		cohort = cohort[:*npeople]
	}

	var backend crcsim.DataLogger
	switch *loggerType {
	case "csv":
		backend = crcsim.NewCSVLogger(*outPath)
	case "sqlite":
		backend = crcsim.NewSQLiteLogger(*outPath)
	default:
		log.Fatalf("%s is not a valid logger type (csv|sqlite)", *loggerType)
	}

	eventLog, err := crcsim.NewEventLog(backend)
	if err != nil {
		log.Fatal(err)
	}
	eventLog.AddRunStarted(paramsPath)

	start := time.Now()
	if err := crcsim.RunCohort(params, cohort, *seed, eventLog); err != nil {
		log.Fatal(err)
	}
	if err := eventLog.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("simulated %d individuals in %s", len(cohort), time.Since(start))
}
