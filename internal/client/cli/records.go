package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ptms/syncore/internal/client/models"
	syncengine "github.com/ptms/syncore/internal/client/sync"
)

func (a *App) addReport(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Println("Login first")
		return
	}

	projects, err := a.repos.Reference.ListProjects(ctx)
	if err != nil || len(projects) == 0 {
		fmt.Println("No cached projects; run 'syncdown' while online first")
		return
	}
	for _, p := range projects {
		fmt.Printf("  %d: %s\n", p.ID, p.Name)
	}
	projectID, err := a.readInt("Project id")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	workTypes, err := a.repos.Reference.ListWorkTypes(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, wt := range workTypes {
		fmt.Printf("  %d: %s\n", wt.ID, wt.Name)
	}
	workTypeID, err := a.readInt("Work type id")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	date, err := GetSimpleText(a.reader, "Date (YYYY-MM-DD)", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	hoursStr, err := GetSimpleText(a.reader, "Hours", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	hours, err := strconv.ParseFloat(hoursStr, 64)
	if err != nil {
		fmt.Println("Hours must be a number")
		return
	}
	desc, err := GetSimpleText(a.reader, "Description", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	localID, err := a.records.SaveReport(ctx, &models.TimeReport{
		ProjectID:   projectID,
		WorkTypeID:  workTypeID,
		Date:        date,
		Hours:       hours,
		Description: desc,
	})
	if err != nil {
		fmt.Printf("Save failed: %v\n", err)
		return
	}
	fmt.Printf("Saved locally (%s); will upload on next sync\n", localID)
}

func (a *App) addNote(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Println("Login first")
		return
	}

	projectID, err := a.readInt("Project id")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	title, err := GetSimpleText(a.reader, "Title", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	content, err := GetMultiline(a.reader, "Content", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	mediaPath, err := GetSimpleText(a.reader, "Media file path (empty for none)", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	noteType := "text"
	if mediaPath != "" {
		noteType, err = GetSimpleText(a.reader, "Note type (audio/photo/video)", os.Stdout)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
	}

	n := &models.Note{
		ProjectID: projectID,
		NoteType:  noteType,
		NoteGroup: "project",
		Title:     title,
		Content:   content,
	}
	n.MediaPath = mediaPath

	localID, err := a.records.SaveNote(ctx, n)
	if err != nil {
		fmt.Printf("Save failed: %v\n", err)
		return
	}
	fmt.Printf("Saved locally (%s); will upload on next sync\n", localID)
}

func (a *App) list(ctx context.Context) {
	merged, err := a.engine.Reconcile(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(merged) == 0 {
		fmt.Println("No records")
		return
	}
	for _, rec := range merged {
		meta := rec.Meta()
		switch r := rec.(type) {
		case *models.TimeReport:
			fmt.Printf("  [%s] %s  %s %.2fh %s (%s)\n",
				meta.Status, r.Date, r.ProjectName, r.Hours, r.Description, meta.LocalID)
		case *models.Note:
			fmt.Printf("  [%s] %s: %s (%s)\n", meta.Status, r.NoteType, r.Title, meta.LocalID)
		}
	}
}

func (a *App) pending(ctx context.Context) {
	n, err := a.records.PendingCount(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	m, err := a.records.PendingMediaCount(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%d records pending upload (%d awaiting media upload)\n", n, m)
}

func (a *App) runSync(ctx context.Context, op func(context.Context) syncengine.Result) {
	if !a.isLoggedIn() {
		fmt.Println("Login first")
		return
	}
	res := op(ctx)
	if res.Busy {
		fmt.Println("A sync is already running")
		return
	}
	fmt.Printf("uploaded=%d downloaded=%d failed=%d skipped=%d\n",
		res.Uploaded, res.Downloaded, res.Failed, res.Skipped)
	for _, msg := range res.Messages {
		fmt.Println("  " + msg)
	}
}

func (a *App) showStatus(ctx context.Context) {
	probe := a.monitor.QuickPing(ctx)
	fmt.Printf("mode=%s probe=%s", a.monitor.Mode(), probe.Status)
	if probe.Latency > 0 {
		fmt.Printf(" latency=%s", probe.Latency.Round(time.Millisecond))
	}
	fmt.Printf("\n  %s\n", probe.Message)

	if stale, err := a.auth.CacheStale(ctx); err == nil && stale {
		fmt.Println("  reference cache is stale; sync while online to refresh")
	}
	if ts, err := a.engine.LastSync(ctx, "last_full_sync"); err == nil && !ts.IsZero() {
		fmt.Printf("  last full sync: %s\n", ts.Local())
	}
}

func (a *App) readInt(prompt string) (int64, error) {
	s, err := GetSimpleText(a.reader, prompt, os.Stdout)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}
