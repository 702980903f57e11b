package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"roombook/internal/reservations/validator"
	"roombook/pkg/client"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const defaultAPIAddr = "http://localhost:8080"

type clientOptions struct {
	addr    string
	timeout time.Duration
}

func newClientCmd() *cobra.Command {
	opts := &clientOptions{}
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Call a running roombook API",
	}
	cmd.PersistentFlags().StringVar(&opts.addr, "addr", defaultAPIAddr, "API base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")

	cmd.AddCommand(
		newListCmd(opts, "rooms", "List rooms", "/api/v1/rooms"),
		newListCmd(opts, "customers", "List customers", "/api/v1/customers"),
		newListCmd(opts, "reservations", "List reservations with room and customer details", "/api/v1/reservations"),
		newRoomReservationsCmd(opts),
		newBookCmd(opts),
		newRescheduleCmd(opts),
		newCancelCmd(opts),
	)
	return cmd
}

func (o *clientOptions) http() *client.HttpClient {
	c := client.NewHttpClient(o.addr)
	c.HTTPClient.Timeout = o.timeout
	return c
}

func newListCmd(opts *clientOptions, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.http().GET(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), resp)
		},
	}
}

func newRoomReservationsCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "room-reservations ROOM_ID",
		Short: "List one room's reservations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.http().GET(cmd.Context(), "/api/v1/rooms/"+url.PathEscape(args[0])+"/reservations")
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), resp)
		},
	}
}

func reservationFlags(cmd *cobra.Command, req *validator.ReservationRequest) {
	cmd.Flags().StringVar(&req.RoomID, "room", "", "room id")
	cmd.Flags().StringVar(&req.CustomerID, "customer-id", "", "customer id")
	cmd.Flags().StringVar(&req.CustomerEmail, "customer-email", "", "customer email")
	cmd.Flags().StringVar(&req.StartUTC, "start", "", "start, RFC 3339 with offset")
	cmd.Flags().StringVar(&req.EndUTC, "end", "", "end, RFC 3339 with offset")
	_ = cmd.MarkFlagRequired("room")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	cmd.MarkFlagsOneRequired("customer-id", "customer-email")
	cmd.MarkFlagsMutuallyExclusive("customer-id", "customer-email")
}

func newBookCmd(opts *clientOptions) *cobra.Command {
	var (
		req     validator.ReservationRequest
		key     string
		retries int
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Create a reservation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = uuid.NewString()
			}
			resp, err := bookWithRetry(cmd.Context(), opts.http(), &req, key, retries)
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), resp)
		},
	}
	reservationFlags(cmd, &req)
	cmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency-Key header (default: random)")
	cmd.Flags().IntVar(&retries, "retries", 2, "resend on transport errors with the same idempotency key")
	return cmd
}

// bookWithRetry resends only when no response arrived. The shared key makes a
// resend of an already committed create return the original reservation.
func bookWithRetry(ctx context.Context, c *client.HttpClient, req *validator.ReservationRequest, key string, retries int) (*client.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		resp, err := c.POSTIdempotent(ctx, "/api/v1/reservations", req, key)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func newRescheduleCmd(opts *clientOptions) *cobra.Command {
	var req validator.ReservationRequest

	cmd := &cobra.Command{
		Use:   "reschedule RESERVATION_ID",
		Short: "Replace a reservation's room, customer and interval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.http().PUT(cmd.Context(), "/api/v1/reservations/"+url.PathEscape(args[0]), &req)
			if err != nil {
				return err
			}
			return printData(cmd.OutOrStdout(), resp)
		},
	}
	reservationFlags(cmd, &req)
	return cmd
}

func newCancelCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel RESERVATION_ID",
		Short: "Cancel a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.http().DELETE(cmd.Context(), "/api/v1/reservations/"+url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			if err := resp.Err(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reservation %s cancelled.\n", args[0])
			return nil
		},
	}
}

func printData(w io.Writer, resp *client.Response) error {
	if err := resp.Err(); err != nil {
		return err
	}
	var data json.RawMessage
	if err := resp.DecodeData(&data); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
