package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
)

// DiaryAdd interactively collects a new diary entry and stores it, online
// or offline.
func (a *App) DiaryAdd(ctx context.Context) error {
	title, err := GetSimpleText(a.reader, "Title", os.Stdout)
	if err != nil {
		return err
	}

	date, err := GetTextWithDefault(a.reader, "Date (YYYY-MM-DD)", time.Now().Format("2006-01-02"), os.Stdout)
	if err != nil {
		return err
	}

	mood, err := GetSimpleText(a.reader, "Mood (optional)", os.Stdout)
	if err != nil {
		return err
	}

	content, err := GetMultiline(a.reader, "What happened?", os.Stdout)
	if err != nil {
		return err
	}

	reqCtx, cancel := a.requestCtx(ctx)
	defer cancel()

	entry, err := a.diary.Create(reqCtx, &models.DiaryEntry{
		Title:   title,
		Date:    date,
		Content: content,
		Mood:    mood,
	})
	if err != nil {
		fmt.Println("Could not save the entry:", err)
		return err
	}

	if entry.LocalOnly() {
		fmt.Println("Saved on this device. It will reach the server on the next 'diary sync'.")
	} else {
		fmt.Println("Saved.")
	}
	return nil
}

// DiaryList prints all entries, pinned first, with a badge on entries the
// server has not seen yet.
func (a *App) DiaryList(ctx context.Context) error {
	reqCtx, cancel := a.requestCtx(ctx)
	defer cancel()

	entries, err := a.diary.List(reqCtx)
	if err != nil {
		fmt.Println("Could not list diary entries:", err)
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No diary entries yet. Write one with 'diary add'.")
		return nil
	}

	for i := range entries {
		renderEntry(os.Stdout, &entries[i])
	}
	return nil
}

// DiaryEdit updates an existing entry, prefilled with the current values.
func (a *App) DiaryEdit(ctx context.Context, id string) error {
	current, err := a.diary.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			fmt.Println("No entry with that id. Use 'diary list' to see them.")
		} else {
			fmt.Println("Could not load the entry:", err)
		}
		return err
	}

	title, err := GetTextWithDefault(a.reader, "Title", current.Title, os.Stdout)
	if err != nil {
		return err
	}
	date, err := GetTextWithDefault(a.reader, "Date (YYYY-MM-DD)", current.Date, os.Stdout)
	if err != nil {
		return err
	}
	mood, err := GetTextWithDefault(a.reader, "Mood", current.Mood, os.Stdout)
	if err != nil {
		return err
	}
	content, err := GetMultiline(a.reader, "What happened? (replaces the current text)", os.Stdout)
	if err != nil {
		return err
	}
	if content == "" {
		content = current.Content
	}

	reqCtx, cancel := a.requestCtx(ctx)
	defer cancel()

	updated, err := a.diary.Update(reqCtx, &models.DiaryEntry{
		Id:      current.Id,
		Title:   title,
		Date:    date,
		Content: content,
		Mood:    mood,
		Pinned:  current.Pinned,
	})
	if err != nil {
		fmt.Println("Could not update the entry:", err)
		return err
	}

	if updated.LocalOnly() {
		fmt.Println("Updated on this device. It will reach the server on the next 'diary sync'.")
	} else {
		fmt.Println("Updated.")
	}
	return nil
}

// DiaryDelete removes an entry. Entries the server already holds need the
// server to confirm, so offline deletes fail rather than silently diverge.
func (a *App) DiaryDelete(ctx context.Context, id string) error {
	reqCtx, cancel := a.requestCtx(ctx)
	defer cancel()

	if err := a.diary.Delete(reqCtx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			fmt.Println("No entry with that id. Use 'diary list' to see them.")
		} else {
			fmt.Println("Could not delete the entry. Please check your connection and try again.")
		}
		return err
	}

	fmt.Println("Deleted.")
	return nil
}

// DiarySync pushes entries that only exist on this device to the server.
func (a *App) DiarySync(ctx context.Context) error {
	reqCtx, cancel := a.requestCtx(ctx)
	defer cancel()

	n, err := a.diary.Sync(reqCtx)
	if n > 0 {
		fmt.Printf("Synced %d entries.\n", n)
	}
	if err != nil {
		fmt.Println("Some entries could not be synced. They stay on this device for now.")
		return err
	}
	if n == 0 {
		fmt.Println("Everything is already synced.")
	}
	return nil
}
