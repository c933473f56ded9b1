package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"cv-go/internal/cv"
)

var kindLabels = map[cv.ChangeKind]string{
	cv.ChangeNew:       "New",
	cv.ChangeRecreated: "New",
	cv.ChangeUpdated:   "Updated",
	cv.ChangeMoved:     "Moved",
	cv.ChangeDeleted:   "Deleted",
}

// changeLine renders a change without its kind.
func changeLine(c cv.FileChange) string {
	switch ch := c.(type) {
	case cv.MovedFile:
		return ch.OldPath + " -> " + ch.NewPath
	case cv.RecreatedFile:
		return ch.Path + " [Recreated]"
	default:
		return c.Target()
	}
}

func printStatus(w io.Writer, cl *cv.Changelist) {
	groups := []struct {
		name    string
		changes []cv.FileChange
	}{
		{"New", cl.New},
		{"Updated", cl.Updated},
		{"Moved", cl.Moved},
		{"Deleted", cl.Deleted},
	}
	for _, g := range groups {
		fmt.Fprintf(w, "# %s: %d\n", g.name, len(g.changes))
		for _, c := range g.changes {
			fmt.Fprintf(w, "    %s\n", changeLine(c))
		}
	}
}

func printList(w io.Writer, tracked []string, cl *cv.Changelist) {
	fmt.Fprintln(w, "# Tracked files:")
	for _, p := range tracked {
		fmt.Fprintf(w, "    %s\n", p)
	}

	if cl.Empty() {
		return
	}
	fmt.Fprintln(w, "# Uncommitted changes:")
	for _, c := range cl.Changes() {
		fmt.Fprintf(w, "    %s: %s\n", kindLabels[c.Kind()], changeLine(c))
	}
}

func printLog(w io.Writer, commits []cv.Commit, loc *time.Location) {
	for i, c := range commits {
		fmt.Fprintf(w, "%d. %s %s\n", i, c.Time.In(loc).Format("2006-01-02 15:04:05"), c.Message)
	}
	fmt.Fprintf(w, "%d commit(s).\n", len(commits))
}

// askConfirm prints the empty-commit prompt and reads one answer. Only "y"
// or "yes" accept; any other answer, a bare Enter or end of input declines.
func askConfirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "No changes detected. Commit anyway? [Y/N] ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
