package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schedgrid/internal/provider/rooms"
)

func newRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage rooms and meetings in the rooms database",
	}

	putCmd := &cobra.Command{
		Use:   "put <id> <name>",
		Short: "Create or update a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, _ := cmd.Flags().GetString("description")
			a, err := loadRoomsApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.store.PutRoom(cmd.Context(), rooms.Room{ID: args[0], Name: args[1], Description: desc})
		},
	}
	putCmd.Flags().String("description", "", "room description shown as the row title")

	bookCmd := &cobra.Command{
		Use:   "book <room-id> <title>",
		Short: "Add a meeting to a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			startFlag, _ := cmd.Flags().GetString("start")
			endFlag, _ := cmd.Flags().GetString("end")
			organizer, _ := cmd.Flags().GetString("organizer")
			category, _ := cmd.Flags().GetString("category")

			start, err := time.Parse(time.RFC3339, startFlag)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := time.Parse(time.RFC3339, endFlag)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			a, err := loadRoomsApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.store.AddMeeting(cmd.Context(), rooms.Meeting{
				RoomID:    args[0],
				Title:     args[1],
				Organizer: organizer,
				Category:  category,
				StartsAt:  start,
				EndsAt:    end,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.ID)
			return nil
		},
	}
	bookCmd.Flags().String("start", "", "start time (RFC 3339)")
	bookCmd.Flags().String("end", "", "end time (RFC 3339)")
	bookCmd.Flags().String("organizer", "", "organizer name")
	bookCmd.Flags().String("category", "", "free-form category")
	_ = bookCmd.MarkFlagRequired("start")
	_ = bookCmd.MarkFlagRequired("end")

	cmd.AddCommand(putCmd, bookCmd)
	return cmd
}

func loadRoomsApp(cmd *cobra.Command) (*app, error) {
	a, err := loadApp(cmd)
	if err != nil {
		return nil, err
	}
	if a.store == nil {
		a.Close()
		return nil, errors.New("rooms: no database configured (set \"database\" in the config file)")
	}
	return a, nil
}
