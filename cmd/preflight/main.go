// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hamed0406/servicewatch/internal/config"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	servicesFile := strings.TrimSpace(os.Getenv("SERVICES_FILE"))
	if servicesFile == "" {
		servicesFile = "services.json"
		warn("SERVICES_FILE empty — defaulting to services.json")
	}
	if svcs, err := config.LoadServices(servicesFile); err != nil {
		fail("services file " + servicesFile + ": " + err.Error())
	} else if len(svcs) == 0 {
		warn("services file " + servicesFile + " missing or empty — the monitor will idle.")
	} else {
		ok(fmt.Sprintf("%s: %d service(s)", servicesFile, len(svcs)))
	}

	if addr := strings.TrimSpace(os.Getenv("ADDR")); addr == "" {
		warn("ADDR empty; the monitor defaults to 127.0.0.1:8080.")
	} else {
		ok("ADDR=" + addr)
	}

	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	switch {
	case db != "" && !strings.HasPrefix(db, "postgres://") && !strings.HasPrefix(db, "postgresql://"):
		fail("DATABASE_URL is set but is not a postgres:// URL.")
	case db != "":
		ok("DATABASE_URL present (postgres store)")
	default:
		path := strings.TrimSpace(os.Getenv("DB_PATH"))
		if path == "" {
			path = "servicewatch.db"
		}
		ok("DATABASE_URL empty — sqlite store at " + path)
	}

	if v := strings.TrimSpace(os.Getenv("CHECK_INTERVAL")); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n <= 0 {
			fail("CHECK_INTERVAL must be a positive number of seconds, got " + v)
		} else {
			ok("CHECK_INTERVAL=" + v + "s")
		}
	}

	if hook := strings.TrimSpace(os.Getenv("SLACK_WEBHOOK")); hook == "" {
		warn("SLACK_WEBHOOK empty — alerts go to the log only.")
	} else if !strings.HasPrefix(hook, "https://") {
		fail("SLACK_WEBHOOK must be an https URL.")
	} else {
		ok("SLACK_WEBHOOK present")
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}
