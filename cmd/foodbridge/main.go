package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/foodbridge/server/internal/assignment"
	"github.com/foodbridge/server/internal/config"
	"github.com/foodbridge/server/internal/dashboard"
	"github.com/foodbridge/server/internal/donation"
	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/internal/task"
)

var (
	app       = kingpin.New("foodbridge", "Admin CLI for the FoodBridge donation logistics server")
	serverURL = app.Flag("server", "Server base URL").Default("http://localhost:8080").Envar("FOODBRIDGE_SERVER_URL").String()
	authToken = app.Flag("token", "Bearer token").Envar("FOODBRIDGE_TOKEN").String()

	pendingCmd = app.Command("pending", "List donations waiting for a collection assignment")

	issuesCmd  = app.Command("issues", "List tasks flagged for review")
	orphansCmd = app.Command("orphans", "List tasks whose donation record is missing")

	assignCollectionCmd = app.Command("assign-collection", "Assign a volunteer to collect a donation")
	acDonationID        = assignCollectionCmd.Arg("donation-id", "Donation ID").Required().String()
	acVolunteerID       = assignCollectionCmd.Arg("volunteer-id", "Volunteer ID").Required().String()

	assignDistributionCmd = app.Command("assign-distribution", "Assign a volunteer to deliver a collected donation")
	adDonationID          = assignDistributionCmd.Arg("donation-id", "Donation ID").Required().String()
	adVolunteerID         = assignDistributionCmd.Arg("volunteer-id", "Volunteer ID").Required().String()
	adLocationID          = assignDistributionCmd.Arg("location-id", "Distribution center ID").Required().String()

	reassignCmd   = app.Command("reassign", "Hand a task to a different volunteer")
	reTaskID      = reassignCmd.Arg("task-id", "Task ID").Required().String()
	reVolunteerID = reassignCmd.Arg("volunteer-id", "New volunteer ID").Required().String()

	rankCmd = app.Command("rank", "Rank volunteers by distance to a pickup point")
	rankLat = rankCmd.Flag("lat", "Pickup latitude").Required().Float64()
	rankLng = rankCmd.Flag("lng", "Pickup longitude").Required().Float64()

	dashboardCmd = app.Command("dashboard", "Show the operations summary")

	tokenCmd  = app.Command("token", "Mint a bearer token (requires FOODBRIDGE_JWT_SECRET)")
	tokenUser = tokenCmd.Arg("user-id", "User ID").Required().String()
	tokenRole = tokenCmd.Flag("role", "Caller role").Default("admin").Enum("admin", "volunteer", "donor")
	tokenTTL  = tokenCmd.Flag("ttl", "Token lifetime").Default("24h").Duration()
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	var err error
	switch command {
	case pendingCmd.FullCommand():
		err = runPending()
	case issuesCmd.FullCommand():
		err = runIssues()
	case orphansCmd.FullCommand():
		err = runOrphans()
	case assignCollectionCmd.FullCommand():
		err = runAssign(fmt.Sprintf("/api/donations/%s/collection-task", *acDonationID),
			map[string]string{"volunteerId": *acVolunteerID})
	case assignDistributionCmd.FullCommand():
		err = runAssign(fmt.Sprintf("/api/donations/%s/distribution-task", *adDonationID),
			map[string]string{"volunteerId": *adVolunteerID, "locationId": *adLocationID})
	case reassignCmd.FullCommand():
		err = runReassign()
	case rankCmd.FullCommand():
		err = runRank()
	case dashboardCmd.FullCommand():
		err = runDashboard()
	case tokenCmd.FullCommand():
		err = runToken()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
		os.Exit(1)
	}
}

func runPending() error {
	var donations []*donation.Donation
	if err := getJSON("/api/donations/pending", &donations); err != nil {
		return err
	}
	if len(donations) == 0 {
		fmt.Println("no donations waiting for assignment")
		return nil
	}
	for _, d := range donations {
		fmt.Printf("%s  %s  %s (%s)  available %s\n",
			bold(d.ID), yellow(d.Status), d.ItemType, d.Quantity,
			d.AvailableFrom.Local().Format(time.RFC822))
	}
	return nil
}

func runIssues() error {
	var reports []*assignment.IssueReport
	if err := getJSON("/api/tasks/issues", &reports); err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Println("no open issues")
		return nil
	}
	for _, r := range reports {
		fmt.Printf("%s  %s  volunteer=%s\n", bold(r.Task.ID), red("issue"), r.Task.VolunteerID)
		fmt.Printf("    notes: %s\n", r.Task.IssueNotes)
		if r.Donation.ID != "" {
			fmt.Printf("    donation: %s %s (%s) from %s\n",
				r.Donation.ID, r.Donation.ItemType, r.Donation.Quantity, r.Donation.DonorName)
		}
	}
	return nil
}

func runOrphans() error {
	var orphans []*task.Task
	if err := getJSON("/api/tasks/orphans", &orphans); err != nil {
		return err
	}
	if len(orphans) == 0 {
		fmt.Println("no orphaned tasks")
		return nil
	}
	for _, t := range orphans {
		fmt.Printf("%s  %s  donation=%s volunteer=%s\n",
			bold(t.ID), yellow(t.Status), t.DonationID, t.VolunteerID)
	}
	return nil
}

func runAssign(path string, body map[string]string) error {
	var resp struct {
		Donation *donation.Donation `json:"donation"`
		Task     *task.Task         `json:"task"`
	}
	if err := postJSON(path, body, &resp); err != nil {
		return err
	}
	fmt.Printf("%s task %s created, donation now %s\n",
		green("ok:"), bold(resp.Task.ID), yellow(resp.Donation.Status))
	return nil
}

func runReassign() error {
	var t task.Task
	if err := postJSON(fmt.Sprintf("/api/tasks/%s/reassign", *reTaskID),
		map[string]string{"volunteerId": *reVolunteerID}, &t); err != nil {
		return err
	}
	fmt.Printf("%s task %s now assigned to %s\n", green("ok:"), bold(t.ID), t.VolunteerID)
	return nil
}

func runRank() error {
	var ranked []struct {
		Volunteer  json.RawMessage `json:"volunteer"`
		DistanceKm *float64        `json:"distanceKm"`
	}
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", *rankLat))
	q.Set("lng", fmt.Sprintf("%f", *rankLng))
	if err := getJSON("/api/volunteers/rank?"+q.Encode(), &ranked); err != nil {
		return err
	}
	for i, entry := range ranked {
		dist := "unknown distance"
		if entry.DistanceKm != nil {
			dist = fmt.Sprintf("%.1f km", *entry.DistanceKm)
		}
		fmt.Printf("%2d. %s  %s\n", i+1, entry.Volunteer, dist)
	}
	return nil
}

func runDashboard() error {
	var sum dashboard.Summary
	if err := getJSON("/api/metrics/dashboard", &sum); err != nil {
		return err
	}
	fmt.Printf("%s\n", bold("FoodBridge operations"))
	fmt.Printf("  donations:       %d\n", sum.TotalDonations)
	fmt.Printf("  tasks completed: %d\n", sum.TasksCompleted)
	fmt.Printf("  in transit:      %d\n", sum.TasksInTransit)
	fmt.Printf("  open issues:     %s\n", colorCount(sum.OpenIssues))
	fmt.Printf("  completion rate: %.0f%%\n", sum.CompletionRate*100)
	for _, m := range sum.MonthlyDonations {
		fmt.Printf("  %s  posted=%d delivered=%d\n", m.Month, m.Posted, m.Delivered)
	}
	return nil
}

func colorCount(n int) string {
	if n > 0 {
		return red(n)
	}
	return green(n)
}

func runToken() error {
	secret := os.Getenv("FOODBRIDGE_JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("FOODBRIDGE_JWT_SECRET is not set")
	}
	resolver := identity.NewJWTResolver(&config.AuthEnv{JWTSecret: secret})
	token, err := resolver.Mint(identity.Caller{
		UserID: *tokenUser,
		Role:   identity.Role(*tokenRole),
	}, *tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func getJSON(path string, out any) error {
	return doJSON(http.MethodGet, path, nil, out)
}

func postJSON(path string, body, out any) error {
	return doJSON(http.MethodPost, path, body, out)
}

func doJSON(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, *serverURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if *authToken != "" {
		req.Header.Set("Authorization", "Bearer "+*authToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
