package bootstrap

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/mobilitykit/provider"
)

// FamilySummary describes one provider family at startup.
type FamilySummary struct {
	Family    string
	Providers []provider.Status
}

// Summary is the startup report of an App.
type Summary struct {
	Service         string
	Version         string
	StartupDuration time.Duration
	Source          string
	AdminAddr       string
	Families        []FamilySummary
}

// Summary snapshots the App without triggering a refresh.
func (a *App) Summary(startup time.Duration) *Summary {
	s := &Summary{
		Service:         a.Name,
		Version:         a.Version,
		StartupDuration: startup,
		Source:          a.Cfg.Source.Kind,
		Families: []FamilySummary{
			{Family: a.BSS.Registry().Family(), Providers: a.BSS.Status()},
			{Family: a.StreetNetwork.Registry().Family(), Providers: a.StreetNetwork.Status()},
		},
	}
	if a.Admin != nil {
		s.AdminAddr = a.Admin.Addr()
	}
	return s
}

// Display writes the summary as a tree.
func (s *Summary) Display(w io.Writer) {
	fmt.Fprintf(w, "\n%s %s started in %.2fs\n\n", s.Service, s.Version, s.StartupDuration.Seconds())
	fmt.Fprintf(w, "Provider source: %s\n", s.Source)

	for _, fam := range s.Families {
		fmt.Fprintf(w, "\n%s (%d)\n", fam.Family, len(fam.Providers))
		for i, st := range fam.Providers {
			prefix := "├──"
			if i == len(fam.Providers)-1 {
				prefix = "└──"
			}
			line := fmt.Sprintf("   %s %s [%s]", prefix, st.ID, st.Kind)
			if len(st.Modes) > 0 {
				line += " " + strings.Join(st.Modes, ",")
			}
			fmt.Fprintln(w, line)
		}
	}

	if s.AdminAddr != "" {
		fmt.Fprintf(w, "\nAdmin: http://%s\n", s.AdminAddr)
	}
	fmt.Fprintln(w)
}
