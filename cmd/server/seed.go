package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"notely/internal/models"
	"notely/internal/notes"
)

var sampleNotes = []string{
	"Had a productive morning meeting",
	"Finished the quarterly report",
	"Reviewed pull requests",
	"Fixed a critical bug in production",
	"Standup notes: discussed blockers",
	"Lunch with the team",
	"Brainstormed new feature ideas",
	"Updated documentation",
	"Deployed new version to staging",
	"Code review session",
	"Worked on performance optimization",
	"Customer feedback review",
	"Sprint planning completed",
	"Refactored authentication module",
	"Database migration successful",
	"Added unit tests for new feature",
	"Attended product demo",
	"Fixed UI alignment issues",
	"Researched new technologies",
	"Weekly sync with stakeholders",
}

var sampleTags = []string{"work", "meeting", "bug", "release", "idea", "team", "docs"}

var (
	seedEmail string
	seedDays  int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert random sample notes for a user over the past days",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Notes are back-dated through the service clock.
		var noteTime time.Time
		a, err := newApp(cfg, notes.WithClock(func() time.Time { return noteTime }))
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		user, err := a.users.GetByEmail(ctx, seedEmail)
		if err != nil {
			return fmt.Errorf("%s: %w", seedEmail, err)
		}
		owner := models.ActorOf(user)

		now := time.Now()
		inserted := 0
		for day := now.AddDate(0, 0, -seedDays); day.Before(now); day = day.AddDate(0, 0, 1) {
			// 0-3 notes per day between 8 AM and 10 PM
			for range rand.IntN(4) {
				noteTime = time.Date(day.Year(), day.Month(), day.Day(), rand.IntN(14)+8, rand.IntN(60), 0, 0, day.Location())
				content := sampleNotes[rand.IntN(len(sampleNotes))]
				in := models.NoteInput{
					Title:   content,
					Content: content,
					Tags:    []string{sampleTags[rand.IntN(len(sampleTags))], sampleTags[rand.IntN(len(sampleTags))]},
				}
				if _, err := a.notes.CreateNote(ctx, owner, in); err != nil {
					a.log.Warn().Err(err).Msg("inserting note")
					continue
				}
				inserted++
			}
		}

		fmt.Printf("Inserted %d notes for %s over the past %d days\n", inserted, user.Email, seedDays)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "Email of the user owning the notes")
	seedCmd.Flags().IntVar(&seedDays, "days", 365, "Number of past days to fill")
	_ = seedCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(seedCmd)
}
