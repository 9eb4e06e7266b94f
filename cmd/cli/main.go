package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hamed0406/servicewatch/internal/httpapi"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(api + "/api/status")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error contacting API:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintln(os.Stderr, "API returned status:", resp.Status)
		os.Exit(1)
	}

	var statuses []httpapi.ServiceStatus
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		fmt.Fprintln(os.Stderr, "Bad response body:", err)
		os.Exit(1)
	}
	if len(statuses) == 0 {
		fmt.Println("No services configured.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tTYPE\tSTATUS\tLATENCY\tUPTIME\tCHECKS")
	for _, s := range statuses {
		status, latency := "no data", "-"
		if s.Latest != nil {
			status = string(s.Latest.Status)
			if s.Latest.ResponseTimeMS != nil {
				latency = fmt.Sprintf("%.0f ms", *s.Latest.ResponseTimeMS)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f%%\t%d\n",
			s.Name, s.Type, status, latency, s.Stats.UptimePercent, s.Stats.TotalChecks)
	}
	w.Flush()
}
