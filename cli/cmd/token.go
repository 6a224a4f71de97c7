package cmd

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development access token",
	Long: `Mint an HS256 access token signed with the gateway's shared secret.

Only for development and testing; production tokens come from the
identity service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		userID, _ := cmd.Flags().GetString("user")
		expires, _ := cmd.Flags().GetDuration("expires")

		if secret == "" {
			return fmt.Errorf("signing secret is required")
		}

		now := time.Now()
		claims := jwt.MapClaims{
			"user_id": userID,
			"iat":     jwt.NewNumericDate(now),
			"exp":     jwt.NewNumericDate(now.Add(expires)),
		}

		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}

		fmt.Println(signed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringP("secret", "s", "", "HS256 signing secret shared with the gateway")
	tokenCmd.Flags().StringP("user", "u", "dev-user", "user id claim")
	tokenCmd.Flags().Duration("expires", 24*time.Hour, "token lifetime")
	if err := tokenCmd.MarkFlagRequired("secret"); err != nil {
		panic(fmt.Sprintf("failed to mark secret as required: %v", err))
	}
}
