package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/alertkeeper/internal/client/client"
	"github.com/dmitrijs2005/alertkeeper/internal/client/models"
	"github.com/spf13/cobra"
)

// timestampLayout is the date format the registry compares recency against.
const timestampLayout = "2006-01-02 15:04:05"

// now is replaced in tests.
var now = time.Now

func (a *App) newAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alerts",
		Aliases: []string{"alert"},
		Short:   "List, show and submit alerts",
	}
	cmd.AddCommand(a.newAlertsListCmd())
	cmd.AddCommand(a.newAlertsGetCmd())
	cmd.AddCommand(a.newAlertsCreateCmd())
	return cmd
}

// authenticate loads the stored token into the client.
func (a *App) authenticate() error {
	tok, err := loadToken(a.config.TokenFile)
	if err != nil {
		return err
	}
	a.client.SetToken(tok)
	return nil
}

// explain rewrites errors the user can act on.
func explain(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("%w (run 'alertctl login' again)", err)
	}
	return err
}

func (a *App) newAlertsListCmd() *cobra.Command {
	var q models.AlertQuery
	var days int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List alerts matching the filters",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("days") {
				q.Days = &days
			}
			if err := a.authenticate(); err != nil {
				return err
			}

			found, err := a.client.ListAlerts(cmd.Context(), q)
			if err != nil {
				return explain(err)
			}

			if a.jsonOutput {
				return writeIndented(a.out, found)
			}
			if len(found) == 0 {
				fmt.Fprintln(a.out, "No alerts found")
				return nil
			}
			return writeTable(a.out, found)
		},
	}

	cmd.Flags().StringVar(&q.User, "user", "", "only alerts submitted for this user")
	cmd.Flags().StringVar(&q.IOCType, "ioc-type", "", "only alerts with an IOC of this type")
	cmd.Flags().StringVar(&q.IOCData, "ioc-data", "", "only alerts with an IOC with this value")
	cmd.Flags().IntVar(&days, "days", 0, "only alerts stamped within the last N days (0 means from now on)")
	return cmd
}

func (a *App) newAlertsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid alert id %q", args[0])
			}
			if err := a.authenticate(); err != nil {
				return err
			}

			alert, err := a.client.GetAlert(cmd.Context(), id)
			if err != nil {
				if errors.Is(err, client.ErrNotFound) {
					return fmt.Errorf("alert %d not found", id)
				}
				return explain(err)
			}

			if a.jsonOutput {
				return writeIndented(a.out, alert)
			}
			writeDetail(a.out, alert)
			return nil
		},
	}
}

func (a *App) newAlertsCreateCmd() *cobra.Command {
	var (
		alert models.Alert
		iocs  []string
		file  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit an alert",
		Long: `Submit an alert either from flags or from a JSON payload file ("-" for stdin).

Each --ioc is type=data, for example --ioc ip=203.0.113.7 --ioc domain=bad.example.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := &alert
			if file != "" {
				p, err := a.readPayload(file)
				if err != nil {
					return err
				}
				payload = p
			} else {
				if alert.Source == "" || alert.User == "" {
					return errors.New("--source and --user are required (or use --file)")
				}
				if alert.Date == "" {
					alert.Date = now().UTC().Format(timestampLayout)
				}
				alert.IOCs = make([]models.IOC, 0, len(iocs))
				for _, s := range iocs {
					ioc, err := models.ParseIOC(s)
					if err != nil {
						return fmt.Errorf("%w: %q", err, s)
					}
					alert.IOCs = append(alert.IOCs, ioc)
				}
			}

			if err := a.authenticate(); err != nil {
				return err
			}

			id, err := a.client.CreateAlert(cmd.Context(), payload)
			if err != nil {
				return explain(err)
			}

			fmt.Fprintf(a.out, "Alert %d created\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&alert.Source, "source", "", "system that raised the alert")
	cmd.Flags().StringVar(&alert.User, "user", "", "user the alert concerns")
	cmd.Flags().StringVar(&alert.Description, "description", "", "free-text description")
	cmd.Flags().StringVar(&alert.Date, "date", "", "alert time as YYYY-MM-DD HH:MM:SS (default now, UTC)")
	cmd.Flags().StringArrayVar(&iocs, "ioc", nil, "indicator as type=data (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the alert from a JSON file")
	cmd.MarkFlagsMutuallyExclusive("file", "source")
	cmd.MarkFlagsMutuallyExclusive("file", "ioc")
	return cmd
}

func (a *App) readPayload(path string) (*models.Alert, error) {
	var r io.Reader = a.reader
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var alert models.Alert
	if err := json.NewDecoder(r).Decode(&alert); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	if alert.IOCs == nil {
		alert.IOCs = []models.IOC{}
	}
	return &alert, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatIOCs(iocs []models.IOC) string {
	parts := make([]string, 0, len(iocs))
	for _, ioc := range iocs {
		parts = append(parts, ioc.Type+"="+ioc.Data)
	}
	return strings.Join(parts, ",")
}

func writeTable(w io.Writer, alerts []models.Alert) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tUSER\tDATE\tIOCS")
	for _, a := range alerts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Source, a.User, a.Date, formatIOCs(a.IOCs))
	}
	return tw.Flush()
}

func writeDetail(w io.Writer, a *models.Alert) {
	fmt.Fprintf(w, "ID:          %d\n", a.ID)
	fmt.Fprintf(w, "Source:      %s\n", a.Source)
	fmt.Fprintf(w, "User:        %s\n", a.User)
	fmt.Fprintf(w, "Date:        %s\n", a.Date)
	fmt.Fprintf(w, "Description: %s\n", a.Description)
	fmt.Fprintln(w, "IOCs:")
	for _, ioc := range a.IOCs {
		fmt.Fprintf(w, "  %s\t%s\n", ioc.Type, ioc.Data)
	}
}
