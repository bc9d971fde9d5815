package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// BackfillRequest matches handlers.BackfillRequest
type BackfillRequest struct {
	GuildID      string `json:"guild_id,omitempty"`
	Platform     string `json:"platform"`
	Region       string `json:"region"`
	Variant      string `json:"variant,omitempty"`
	Name         string `json:"name"`
	Tag          string `json:"tag"`
	StoreMatches int    `json:"store_matches"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8080/api/v1", "matchcache API base URL")
	guild := flag.String("guild", "", "guild id (empty for direct messages)")
	platform := flag.String("platform", "pc", "pc or console")
	region := flag.String("region", "eu", "region")
	variant := flag.String("variant", "", "standard or deathmatch")
	matches := flag.Int("matches", 10, "matches to store per player")
	wait := flag.Bool("wait", true, "poll until every job has finished")
	flag.Parse()

	players := flag.Args()
	if len(players) == 0 {
		fmt.Fprintln(os.Stderr, "usage: seeder [flags] Name#Tag...")
		os.Exit(2)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	token := os.Getenv("API_TOKEN")

	jobs := make(map[string]string)
	for _, p := range players {
		name, tag, ok := strings.Cut(p, "#")
		if !ok {
			log.Printf("Skipping %q: expected Name#Tag", p)
			continue
		}
		payload, err := json.Marshal(BackfillRequest{
			GuildID:      *guild,
			Platform:     *platform,
			Region:       *region,
			Variant:      *variant,
			Name:         name,
			Tag:          tag,
			StoreMatches: *matches,
		})
		if err != nil {
			log.Fatalf("Failed to marshal JSON: %v", err)
		}

		req, err := http.NewRequest("POST", *apiURL+"/backfill", bytes.NewBuffer(payload))
		if err != nil {
			log.Fatalf("Failed to create request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", token)
		}

		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("Failed to send request: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusAccepted {
			fmt.Printf("%s: %s %s\n", p, resp.Status, strings.TrimSpace(string(body)))
			continue
		}
		var accepted struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &accepted); err != nil {
			log.Fatalf("Unexpected response: %s", body)
		}
		jobs[accepted.ID] = p
		fmt.Printf("%s: queued as %s\n", p, accepted.ID)
	}

	if !*wait {
		return
	}

	for len(jobs) > 0 {
		time.Sleep(2 * time.Second)
		for id, p := range jobs {
			resp, err := client.Get(*apiURL + "/backfill/" + id)
			if err != nil {
				log.Printf("Status of %s failed: %v", id, err)
				continue
			}
			var status struct {
				State   string `json:"state"`
				MatchID string `json:"match_id"`
				Error   string `json:"error"`
			}
			err = json.NewDecoder(resp.Body).Decode(&status)
			resp.Body.Close()
			if err != nil || resp.StatusCode != http.StatusOK {
				fmt.Printf("%s: status unavailable (%d)\n", p, resp.StatusCode)
				delete(jobs, id)
				continue
			}
			switch status.State {
			case "done":
				fmt.Printf("%s: done, latest %s\n", p, status.MatchID)
				delete(jobs, id)
			case "failed":
				fmt.Printf("%s: failed: %s\n", p, status.Error)
				delete(jobs, id)
			}
		}
	}
}
