package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// apiClient calls the ledger HTTP API.
type apiClient struct {
	baseURL  string
	username string
	http     *http.Client
}

// apiError is a non-2xx response from the API.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.Status, e.Message)
}

func (c *apiClient) do(method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.Header.Set("X-Username", c.username)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := string(data)
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
			if e.Message != "" {
				msg += ": " + e.Message
			}
		}
		return &apiError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	client := &apiClient{}
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:           "bankledger-cli",
		Short:         "Bank ledger CLI tool",
		Long:          `A command line interface for interacting with the bank ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client.http = &http.Client{Timeout: timeout}
		},
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&client.baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().StringVarP(&client.username, "username", "u", "", "Acting username sent as X-Username")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		newCustomersCmd(client),
		newAccountsCmd(client),
		newTransferCmd(client),
		newHistoryCmd(client),
		newDashboardCmd(client),
		newLedgerCmd(client),
	)

	return rootCmd
}

func newCustomersCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{Use: "customers", Short: "Customer operations"}

	var body struct {
		Username      string `json:"username"`
		Email         string `json:"email,omitempty"`
		FirstName     string `json:"first_name,omitempty"`
		LastName      string `json:"last_name,omitempty"`
		PostalAddress string `json:"postal_address,omitempty"`
		BirthDate     string `json:"birth_date,omitempty"`
	}
	register := &cobra.Command{
		Use:   "register USERNAME",
		Short: "Register a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body.Username = args[0]
			var customer map[string]any
			if err := client.do(http.MethodPost, "/api/v1/customers/", nil, body, &customer); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), customer)
		},
	}
	register.Flags().StringVar(&body.Email, "email", "", "Email address")
	register.Flags().StringVar(&body.FirstName, "first-name", "", "First name")
	register.Flags().StringVar(&body.LastName, "last-name", "", "Last name")
	register.Flags().StringVar(&body.PostalAddress, "address", "", "Postal address")
	register.Flags().StringVar(&body.BirthDate, "birth-date", "", "Birth date (YYYY-MM-DD)")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var customer map[string]any
			if err := client.do(http.MethodGet, "/api/v1/customers/"+url.PathEscape(args[0]), nil, nil, &customer); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), customer)
		},
	}

	cmd.AddCommand(register, get)
	return cmd
}

func newAccountsCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{Use: "accounts", Short: "Account operations"}

	var balance string
	open := &cobra.Command{
		Use:   "open OWNER_ID RIB",
		Short: "Open an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"owner_id": args[0], "rib": args[1]}
			if balance != "" {
				body["initial_balance"] = balance
			}
			var account map[string]any
			if err := client.do(http.MethodPost, "/api/v1/accounts/", nil, body, &account); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), account)
		},
	}
	open.Flags().StringVar(&balance, "balance", "", "Initial balance")

	get := &cobra.Command{
		Use:   "get RIB",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account map[string]any
			if err := client.do(http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil, nil, &account); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), account)
		},
	}

	var owner string
	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if owner != "" {
				q.Set("owner_id", owner)
			} else {
				q.Set("limit", strconv.Itoa(limit))
				q.Set("offset", strconv.Itoa(offset))
			}
			var accounts any
			if err := client.do(http.MethodGet, "/api/v1/accounts/", q, nil, &accounts); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), accounts)
		},
	}
	list.Flags().StringVar(&owner, "owner", "", "Only accounts of this owner")
	list.Flags().IntVar(&limit, "limit", 50, "Page size")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset")

	status := &cobra.Command{
		Use:   "status RIB OPENED|BLOCKED|CLOSED",
		Short: "Change an account's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account map[string]any
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/status"
			if err := client.do(http.MethodPatch, path, nil, map[string]string{"status": args[1]}, &account); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), account)
		},
	}

	cmd.AddCommand(open, get, list, status)
	return cmd
}

func newTransferCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer FROM_RIB TO_RIB AMOUNT",
		Short: "Transfer money between two accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if client.username == "" {
				return errors.New("--username is required for transfers")
			}

			var result struct {
				TransferID string `json:"transfer_id"`
				Message    string `json:"message"`
			}
			body := map[string]string{"from_rib": args[0], "to_rib": args[1], "amount": args[2]}
			if err := client.do(http.MethodPost, "/api/v1/transfers/", nil, body, &result); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			fmt.Fprintf(cmd.OutOrStdout(), "Transfer ID: %s\n", result.TransferID)
			return nil
		},
	}
}

func newHistoryCmd(client *apiClient) *cobra.Command {
	var from, to string
	var page, size int
	cmd := &cobra.Command{
		Use:   "history RIB",
		Short: "List an account's entries",
		Long:  "Lists entries between --from and --to, or the --page-th page of recent entries when no range is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/entries"
			q := url.Values{}

			if from != "" || to != "" {
				if from == "" || to == "" {
					return errors.New("--from and --to must be given together")
				}
				q.Set("from", from)
				q.Set("to", to)
			} else {
				base += "/recent"
				q.Set("page", strconv.Itoa(page))
				q.Set("size", strconv.Itoa(size))
			}

			var entries any
			if err := client.do(http.MethodGet, base, q, nil, &entries); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "End date, inclusive")
	cmd.Flags().IntVar(&page, "page", 0, "Page index")
	cmd.Flags().IntVar(&size, "size", 10, "Page size")
	return cmd
}

func newDashboardCmd(client *apiClient) *cobra.Command {
	var rib string
	var page int
	cmd := &cobra.Command{
		Use:   "dashboard CUSTOMER_ID",
		Short: "Show a customer's dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"page": {strconv.Itoa(page)}}
			if rib != "" {
				q.Set("rib", rib)
			}

			var view dashboardView
			if err := client.do(http.MethodGet, "/api/v1/customers/"+url.PathEscape(args[0])+"/dashboard", q, nil, &view); err != nil {
				return err
			}
			printDashboard(cmd.OutOrStdout(), &view)
			return nil
		},
	}
	cmd.Flags().StringVar(&rib, "rib", "", "Account to show (defaults to the newest)")
	cmd.Flags().IntVar(&page, "page", 0, "Page index")
	return cmd
}

type dashboardEntry struct {
	CreatedAt   time.Time `json:"created_at"`
	Kind        string    `json:"kind"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
}

type dashboardView struct {
	RIB               string           `json:"rib"`
	Balance           string           `json:"balance"`
	Entries           []dashboardEntry `json:"entries"`
	CurrentPage       int              `json:"current_page"`
	TotalPages        int              `json:"total_pages"`
	TotalTransactions int64            `json:"total_transactions"`
}

func printDashboard(w io.Writer, v *dashboardView) {
	fmt.Fprintf(w, "Account %s  balance %s\n", v.RIB, v.Balance)
	fmt.Fprintf(w, "%-20s %-7s %12s  %s\n", "DATE", "KIND", "AMOUNT", "DESCRIPTION")
	for _, e := range v.Entries {
		fmt.Fprintf(w, "%-20s %-7s %12s  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, e.Amount, truncate(e.Description, 40))
	}
	fmt.Fprintf(w, "page %d/%d, %d transactions\n", v.CurrentPage+1, max(v.TotalPages, 1), v.TotalTransactions)
}

func newLedgerCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{Use: "ledger", Short: "Ledger operations"}

	consistency := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result map[string]any
			if err := client.do(http.MethodGet, "/api/v1/ledger/consistency", nil, nil, &result); err != nil {
				return err
			}

			if consistent, _ := result["consistent"].(bool); !consistent {
				_ = printJSON(cmd.OutOrStdout(), result)
				return errors.New("consistency check FAILED")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Consistency check PASSED")
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	reconcile := &cobra.Command{
		Use:   "reconcile [RIB]",
		Short: "Reconcile one account, or the whole ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/ledger/reconciliation"
			if len(args) == 1 {
				path = "/api/v1/accounts/" + url.PathEscape(args[0]) + "/reconciliation"
			}
			var result any
			if err := client.do(http.MethodGet, path, nil, nil, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.AddCommand(consistency, reconcile)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
