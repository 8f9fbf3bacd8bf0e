package commands

import (
	"os"

	"kittexport/internal/components/telemetry"
	"kittexport/internal/scrapers/kitt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var lecturesFlags portalFlags

func init() {
	lecturesFlags.register(lecturesCmd)
	rootCmd.AddCommand(lecturesCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var lecturesCmd = &cobra.Command{
	Use:   "lectures [--camp <id>]",
	Short: "Lists the lectures of a camp and where their content lives, without exporting anything.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, lecturesFlags)
		if err != nil {
			return err
		}

		tel := telemetry.SlogAPI{}
		credential, err := kitt.NewCredential(cfg.CookieName, cfg.CookieValue, cfg.BaseUrl)
		if err != nil {
			return err
		}
		client, err := kitt.NewClient(kitt.ClientOptions{
			BaseUrl:          cfg.BaseUrl,
			Credential:       credential,
			CloudflareBypass: lecturesFlags.cloudflare,
			Telemetry:        tel,
		})
		if err != nil {
			return err
		}

		lectures, err := kitt.NewCatalog(client, tel).ListLectures(cmd.Context(), cfg.Camp)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"#", "Week", "Lecture", "Content"})
		for i, lecture := range lectures {
			content := "-"
			if lecture.HasContent() {
				content = lecture.ContentUrl.String()
			}
			t.AppendRow(table.Row{i + 1, lecture.Week, lecture.Name, content})
		}
		t.Render()
		return nil
	},
}
