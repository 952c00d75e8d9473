package services

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"reklama5-scraper/models"
)

// Reporter prints the end-of-run report.
type Reporter struct {
	w   io.Writer
	Top int
}

// NewReporter writes to w, or stdout when w is nil.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{w: w, Top: 15}
}

func (rp *Reporter) Print(r *models.Report) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)
	w := rp.w

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🚗 REKLAMA5 RUN REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	if s := r.Summary; s != nil {
		fmt.Fprintf(w, "\033[1;33m  Run\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  Pages fetched     : \033[1m%s\033[0m\n", humanize.Comma(int64(s.Pages)))
		fmt.Fprintf(w, "  Listings found    : \033[1m%s\033[0m\n", humanize.Comma(int64(s.Found)))
		fmt.Fprintf(w, "  Duplicates        : \033[1m%s\033[0m\n", humanize.Comma(int64(s.Duplicates)))
		fmt.Fprintf(w, "  New               : \033[1;32m%s\033[0m\n", humanize.Comma(int64(s.New)))
		fmt.Fprintf(w, "  Changed           : \033[1;33m%s\033[0m\n", humanize.Comma(int64(s.Changed)))
		fmt.Fprintf(w, "  Unchanged         : \033[1m%s\033[0m\n", humanize.Comma(int64(s.Unchanged)))
		if s.Skipped > 0 {
			fmt.Fprintf(w, "  Skipped writes    : \033[1m%s\033[0m\n", humanize.Comma(int64(s.Skipped)))
		}
		if s.DetailFailed > 0 {
			fmt.Fprintf(w, "  Detail failures   : \033[1;31m%s\033[0m\n", humanize.Comma(int64(s.DetailFailed)))
		}
		fmt.Fprintf(w, "  Elapsed           : \033[1m%s\033[0m\n", s.Elapsed.Round(time.Millisecond))
		if s.Err != nil {
			fmt.Fprintf(w, "  Error             : \033[1;31m%v\033[0m\n", s.Err)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top Make/Model (avg over prices ≥ %s €)\033[0m\n", humanize.Comma(int64(r.MinPrice)))
	fmt.Fprintf(w, "  %s\n", thin)
	ranked := Ranked(r.Aggregates)
	if len(ranked) == 0 {
		fmt.Fprintf(w, "  No listings stored\n")
	}
	for i, rk := range ranked {
		if rp.Top > 0 && i >= rp.Top {
			fmt.Fprintf(w, "  … and %d more\n", len(ranked)-i)
			break
		}
		e := rk.Entry
		avg := "n/a"
		if e.AvgPrice != nil {
			avg = humanize.Comma(int64(round2(*e.AvgPrice))) + " €"
		}
		name := rk.Key
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(w, "  %-30s %5d total %5d priced %4d below  \033[1;32m%10s\033[0m\n",
			truncate(name, 28), e.CountTotal, e.CountWithPrice, e.CountBelowMin, avg)
	}
	fmt.Fprintln(w)

	if len(r.ByYear) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Average Price by Model Year\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for i, g := range r.ByYear {
			if rp.Top > 0 && i >= rp.Top*2 {
				fmt.Fprintf(w, "  … and %d more\n", len(r.ByYear)-i)
				break
			}
			year := "?"
			if g.Year != nil {
				year = fmt.Sprint(*g.Year)
			}
			avg := "n/a"
			if g.AvgPrice != nil {
				avg = humanize.Comma(int64(round2(*g.AvgPrice))) + " €"
			}
			fmt.Fprintf(w, "  %-30s %4s %5d total %4d below  \033[1;32m%10s\033[0m\n",
				truncate(strings.TrimSpace(g.Make+" "+g.Model), 28), year, g.CountTotal, g.CountBelowMin, avg)
		}
		fmt.Fprintln(w)
	}

	if len(r.RecentChanges) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Recent Price Changes\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, c := range r.RecentChanges {
			fmt.Fprintf(w, "  %-12s %10s → %-10s  %s\n",
				truncate(c.ListingID, 12), c.OldValue, c.NewValue, humanize.Time(c.ChangedAt))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
