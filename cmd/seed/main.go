// Command seed registers a show in the booking database.  The catalogue
// lives in another service; this is the development hook for it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/iliyamo/seat-booking-engine/internal/config"
	"github.com/iliyamo/seat-booking-engine/internal/database"
	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

func main() {
	var (
		id      = flag.String("id", "", "show id (default: random uuid)")
		title   = flag.String("title", "", "show title")
		price   = flag.Int64("price-cents", 1000, "price per seat in cents")
		starts  = flag.String("starts-at", "", "schedule time, RFC3339 (default: 24h from now)")
		migrate = flag.Bool("migrate", true, "create tables first")
	)
	flag.Parse()

	if *title == "" {
		fmt.Fprintln(os.Stderr, "usage: seed --title NAME [--id ID] [--price-cents N] [--starts-at RFC3339]")
		os.Exit(2)
	}
	if *id == "" {
		*id = uuid.NewString()
	}
	at := time.Now().Add(24 * time.Hour).UTC()
	if *starts != "" {
		t, err := time.Parse(time.RFC3339, *starts)
		if err != nil {
			logrus.WithError(err).Fatal("invalid --starts-at")
		}
		at = t.UTC()
	}

	cfg := config.Load()
	config.NewLogger(cfg)
	dialect, err := repository.ParseDialect(cfg.StoreDriver)
	if err != nil {
		logrus.WithError(err).Fatal("seed needs a SQL store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := database.Open(ctx, database.Options{
		Dialect: dialect, User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost,
		Port: cfg.DBPort, Name: cfg.DBName, SSLMode: cfg.DBSSLMode, Attempts: 3,
	})
	if err != nil {
		logrus.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if *migrate {
		if err := database.Migrate(ctx, db, dialect); err != nil {
			logrus.WithError(err).Fatal("migrate")
		}
	}

	show := &model.Show{ID: *id, Title: *title, PriceCents: *price, ScheduleTime: at}
	if err := repository.NewSQLStore(db, dialect).CreateShow(ctx, show); err != nil {
		logrus.WithError(err).WithField("show_id", *id).Fatal("create show")
	}
	logrus.WithFields(logrus.Fields{"show_id": show.ID, "starts_at": at}).Info("show created")
	fmt.Println(show.ID)
}
