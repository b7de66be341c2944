package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/ingest"
)

func newPublishCmd(a *app) *cobra.Command {
	var (
		file      string
		deleteKey string
	)
	cmd := &cobra.Command{
		Use:   "publish KIND",
		Short: "Send an upsert or delete message to the ingest consumer and wait for its ack",
		Example: `  fleetgraph publish aircraft -f aircraft.json
  fleetgraph publish aircraft --delete AC-1001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}
			subjects := a.cfg.Subjects()

			subject := subjects.Upsert(kind)
			var body []byte
			if deleteKey != "" {
				subject = subjects.Delete(kind)
				body, err = json.Marshal(ingest.DeleteRequest{Key: deleteKey})
			} else {
				body, err = readInput(cmd, file)
			}
			if err != nil {
				return err
			}

			nc, err := a.dial(a.cfg.NATS.URL)
			if err != nil {
				return fmt.Errorf("nats connect %s: %w", a.cfg.NATS.URL, err)
			}
			defer nc.Close()

			ack, err := ingest.Send(cmd.Context(), nc, subject, body)
			if err != nil {
				return err
			}
			if err := a.emit(cmd, ack, func(w io.Writer) error {
				return printAck(w, ack)
			}); err != nil {
				return err
			}
			return ack.Err()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON document, - for stdin")
	cmd.Flags().StringVar(&deleteKey, "delete", "", "delete the entity with this key instead of upserting")
	return cmd
}

func printAck(w io.Writer, ack ingest.Ack) error {
	if !ack.OK {
		_, err := fmt.Fprintf(w, "%s %s rejected (%s)\n", ack.Action, ack.Kind, ack.ErrorKind)
		return err
	}
	if ack.Deleted != nil {
		_, err := fmt.Fprintf(w, "%s %s %s deleted=%t\n", ack.Action, ack.Kind, ack.Key, *ack.Deleted)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s %s ok\n", ack.Action, ack.Kind, ack.Key)
	return err
}
