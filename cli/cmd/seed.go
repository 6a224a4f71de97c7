package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed posts through the gateway",
	Long: `Create fake posts against a running stack, going through the gateway
so the full dispatch, cache and fan-out path is exercised.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gatewayURL, _ := cmd.Flags().GetString("gateway")
		token, _ := cmd.Flags().GetString("token")
		count, _ := cmd.Flags().GetInt("count")

		if token == "" {
			return fmt.Errorf("bearer token is required (mint one with 'pulsefeed token')")
		}

		client := &http.Client{Timeout: 10 * time.Second}
		created := 0

		for i := 0; i < count; i++ {
			body, err := json.Marshal(map[string]any{
				"content": gofakeit.Sentence(gofakeit.Number(5, 25)),
			})
			if err != nil {
				return fmt.Errorf("failed to build post body: %w", err)
			}

			req, err := http.NewRequest(http.MethodPost, gatewayURL+"/v1/posts", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("failed to build request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			res, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("failed to create post %d: %w", i+1, err)
			}
			resBody, _ := io.ReadAll(res.Body)
			res.Body.Close()

			if res.StatusCode != http.StatusCreated {
				return fmt.Errorf("post %d rejected: %s - %s", i+1, res.Status, string(resBody))
			}
			created++
		}

		fmt.Printf("created %d posts via %s\n", created, gatewayURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("gateway", "http://localhost:8080", "gateway base URL")
	seedCmd.Flags().StringP("token", "t", "", "bearer token for authenticated routes")
	seedCmd.Flags().IntP("count", "c", 20, "number of posts to create")
}
