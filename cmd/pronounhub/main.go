package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) get(path string) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	resp, err := c.HTTP.Get(u)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		baseURL = envOr("PRONOUNHUB_URL", "http://localhost:8080")
		out     = envOr("PRONOUNHUB_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "pronounhub",
		Short: "CLI for the pronounhub public API",
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "service base URL (env PRONOUNHUB_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "output format: json|text")

	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.BaseURL = baseURL
		cl.OutFormat = out
	}

	lookupCmd := &cobra.Command{
		Use:   "lookup <platform> <id>",
		Short: "Look up pronouns for an external identity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("platform", args[0])
			q.Set("id", args[1])
			status, body, err := cl.get("/api/v1/lookup?" + q.Encode())
			if err != nil {
				return err
			}
			cl.print(status, body)
			if status != http.StatusOK {
				return fmt.Errorf("status %d", status)
			}
			return nil
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List the mounted auth providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.get("/api/v1/providers")
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check service liveness and readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range []string{"/healthz", "/readyz"} {
				status, body, err := cl.get(path)
				if err != nil {
					return err
				}
				fmt.Printf("%s: ", path)
				cl.print(status, body)
				if status != http.StatusOK {
					return fmt.Errorf("%s returned %d", path, status)
				}
			}
			return nil
		},
	}

	root.AddCommand(lookupCmd, providersCmd, healthCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
