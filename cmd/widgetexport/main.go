// Command widgetexport refreshes the events collection for one couple and
// regenerates the home-screen widget snapshot file.
//
//	widgetexport [-c conf.json] [-r region] [-b bucket] [-t table] -p <couple-id>
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/avolkovs/couplesync/internal/app"
	"github.com/avolkovs/couplesync/internal/config"
	"github.com/avolkovs/couplesync/internal/flagx"
)

func coupleIDFlag() string {
	var coupleID string

	args := flagx.FilterArgs(os.Args[1:], []string{"-p", "-couple"})

	fs := flag.NewFlagSet("couple", flag.ContinueOnError)
	fs.StringVar(&coupleID, "couple", "", "couple id to export")
	fs.StringVar(&coupleID, "p", "", "couple id to export (short)")
	_ = fs.Parse(args)

	return coupleID
}

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	coupleID := coupleIDFlag()
	if coupleID == "" {
		log.Fatal("usage: widgetexport [flags] -p <couple-id>")
	}

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	if err := a.ExportWidget(ctx, coupleID); err != nil {
		log.Fatalf("%v", err)
	}
}
