package confounder

import (
	"time"
)

// Type is the kind of confounding event
type Type string

const (
	TypeEarnings          Type = "earnings"
	TypeFDAPDUFA          Type = "fda_pdufa"
	TypeFedMeeting        Type = "fed_meeting"
	TypeCPIRelease        Type = "cpi_release"
	TypeSectorMove        Type = "sector_move"
	TypeArticleClustering Type = "article_clustering"
	TypeOther             Type = "other"
)

// Types lists every known type
var Types = []Type{
	TypeEarnings, TypeFDAPDUFA, TypeFedMeeting, TypeCPIRelease,
	TypeSectorMove, TypeArticleClustering, TypeOther,
}

// ParseType maps a stored string to a Type; unknown values become TypeOther
func ParseType(s string) Type {
	for _, t := range Types {
		if string(t) == s {
			return t
		}
	}
	return TypeOther
}

// Record is a confounding event. A nil Ticker means market-wide (macro release).
type Record struct {
	ID          int64     `db:"id"`
	Ticker      *string   `db:"ticker"`
	EventDate   time.Time `db:"event_date"`
	Type        Type      `db:"event_type"`
	Description string    `db:"description"`
}
