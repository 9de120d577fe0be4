package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a chat message to the assistant",
	Long: `Send a chat message to the assistant.

Examples:
  cofounderd chat "Как проверить спрос на мою идею?"
  cofounderd chat --project demo "Расскажи про рынок доставки еды"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		project, _ := cmd.Flags().GetString("project")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"message":   message,
			"projectId": project,
		}
		resp, err := client.post(cmd.Context(), "/chat", req)
		if err != nil {
			return err
		}

		var result struct {
			Response        string `json:"response"`
			Success         bool   `json:"success"`
			Recommendations []struct {
				Score   float32 `json:"score"`
				Content string  `json:"content"`
			} `json:"recommendations"`
			Error string `json:"error"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.Success {
			printWarning("degraded reply: %s", result.Error)
		}
		fmt.Println(result.Response)
		if len(result.Recommendations) > 0 {
			fmt.Printf("\n%s\n", colorize(colorBold, "From project memory:"))
			for _, rec := range result.Recommendations {
				fmt.Printf("  - %s [%.2f]\n", rec.Content, rec.Score)
			}
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().String("project", "", "project the conversation belongs to")
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over project memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		project, _ := cmd.Flags().GetString("project")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"query":     query,
			"projectId": project,
			"limit":     limit,
		}
		resp, err := client.post(cmd.Context(), "/search", req)
		if err != nil {
			return err
		}

		var result struct {
			Ideas []struct {
				ID      string  `json:"id"`
				Score   float32 `json:"score"`
				Content string  `json:"content"`
				Type    string  `json:"type"`
			} `json:"ideas"`
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.Success {
			printWarning("%s", result.Error)
			return nil
		}
		if len(result.Ideas) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		for i, r := range result.Ideas {
			fmt.Printf("\n%s [score: %.3f]\n", colorize(colorBold, fmt.Sprintf("Result %d", i+1)), r.Score)
			if r.Type != "" {
				fmt.Printf("  Type: %s\n", r.Type)
			}
			text := r.Content
			if len(text) > 500 {
				text = text[:500] + "..."
			}
			fmt.Printf("  %s\n", text)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("project", "", "limit results to one project")
	searchCmd.Flags().Int("limit", 5, "maximum number of results")
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <idea>",
	Short: "Run market analysis for a startup idea",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idea := strings.Join(args, " ")
		project, _ := cmd.Flags().GetString("project")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"idea":      idea,
			"projectId": project,
		}
		resp, err := client.post(cmd.Context(), "/market-analysis", req)
		if err != nil {
			return err
		}

		var result struct {
			Success  bool `json:"success"`
			Insights any  `json:"insights"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Insights)
	},
}

func init() {
	analyzeCmd.Flags().String("project", "", "project to attach the analysis to")
}

// --- messages ---

var messagesCmd = &cobra.Command{
	Use:   "messages <project>",
	Short: "List the stored conversation log for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/projects/"+args[0]+"/messages")
		if err != nil {
			return err
		}

		var result struct {
			Messages []struct {
				ID        string `json:"id"`
				Role      string `json:"role"`
				Content   string `json:"content"`
				CreatedAt string `json:"createdAt"`
			} `json:"messages"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Messages) == 0 {
			fmt.Println("No messages found.")
			return nil
		}

		for _, m := range result.Messages {
			content := m.Content
			if len(content) > 80 {
				content = content[:80] + "..."
			}
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, m.CreatedAt),
				m.Role,
				content,
			)
		}
		return nil
	},
}

// --- purge ---

var purgeCmd = &cobra.Command{
	Use:   "purge <project>",
	Short: "Delete all memory and messages for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL memory for project %q. Use --confirm to proceed.", args[0])
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/projects/"+args[0]+"/memory")
		if err != nil {
			return err
		}

		var result struct {
			Success         bool  `json:"success"`
			MessagesDeleted int64 `json:"messagesDeleted"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Purged project %s (%d logged messages removed)", args[0], result.MessagesDeleted)
		return nil
	},
}

func init() {
	purgeCmd.Flags().Bool("confirm", false, "confirm project purge")
}
