// export-period writes the returns workbook of a period to disk.
//
// Usage:
//
//	go run ./cmd/export-period -period 2026-01-A [-out dir]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/models/reports"
)

func main() {
	period := flag.String("period", "", "period to export, e.g. 2026-01-A (default: current period)")
	outDir := flag.String("out", ".", "output directory")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()

	p := *period
	if p == "" {
		p = models.PeriodAt(time.Now(), config.ReportLocation()).String()
	}
	matrix, facts, err := reports.AggregateWithFacts(ctx, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aggregate %s: %v\n", p, err)
		os.Exit(1)
	}
	f, err := reports.ExportReturnMatrix(matrix, reports.BuildDetailRows(matrix, facts), config.ReportLocation())
	if err != nil {
		fmt.Fprintf(os.Stderr, "export %s: %v\n", p, err)
		os.Exit(1)
	}
	defer f.Close()

	path := filepath.Join(*outDir, reports.ExportFileName(matrix.Period))
	if err := f.SaveAs(path); err != nil {
		fmt.Fprintf(os.Stderr, "save %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d/%d stores reporting, grand total %d\n", path, matrix.ReportingStores, matrix.StoreCount, matrix.GrandTotal)
}
