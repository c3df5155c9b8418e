// Operator CLI listing the live sessions of a running gateway.
//
//	go run ./cmd/sessions -addr http://localhost:8080 -secret $JWT_SECRET
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"wa-gateway/auth"
	"wa-gateway/services"
)

type sessionsResponse struct {
	Code   int                    `json:"code"`
	Status string                 `json:"status"`
	Body   []services.SessionInfo `json:"body"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Gateway base URL")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "Gateway JWT secret")
	flag.Parse()

	if *secret == "" {
		log.Fatal("a signing secret is required (-secret or JWT_SECRET)")
	}

	tokens := auth.NewTokenManager(*secret, 5*time.Minute)
	token, err := tokens.GenerateToken("sessions-cli")
	if err != nil {
		log.Fatal("Error signing token: ", err)
	}

	req, err := http.NewRequest(http.MethodGet, *addr+"/sessions", nil)
	if err != nil {
		log.Fatal("Error building request: ", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatal("Error calling gateway: ", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Gateway answered %s", resp.Status)
	}

	var payload sessionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Fatal("Error decoding response: ", err)
	}

	color.New(color.BgBlack, color.FgGreen).Printf("  ====== %d live sessions ======\n", len(payload.Body))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Location", "Phone", "Platform", "Pushname", "Ready since"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, session := range payload.Body {
		table.Append([]string{
			session.LocationIdentifier,
			session.Phone,
			session.Platform,
			session.PushName,
			fmt.Sprintf("%s (%s)", session.ReadyAt.Format("2006-01-02 15:04:05"),
				time.Since(session.ReadyAt).Round(time.Second)),
		})
	}
	table.Render()
}
