package models

// Status is the basic status for brackets and persisted matches
type Status int32

const (
	Status_NEW       Status = 0
	Status_ONGOING   Status = 1
	Status_COMPLETED Status = 2
)

// Format is used to discern between the supported pairing formats
type Format int32

const (
	Format_SINGLE_ELIMINATION Format = 0
	Format_DOUBLE_ELIMINATION Format = 1
	Format_ROUND_ROBIN        Format = 2
	Format_STEPLADDER         Format = 3
	Format_SWISS              Format = 4
	Format_DOUBLE_ROUND_ROBIN Format = 5
)

var formatNames = map[Format]string{
	Format_SINGLE_ELIMINATION: "single-elimination",
	Format_DOUBLE_ELIMINATION: "double-elimination",
	Format_ROUND_ROBIN:        "round-robin",
	Format_STEPLADDER:         "stepladder",
	Format_SWISS:              "swiss",
	Format_DOUBLE_ROUND_ROBIN: "double-round-robin",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFormat returns the Format with the given name
func ParseFormat(name string) (Format, bool) {
	for f, n := range formatNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

// Color is the seat or piece colour a competitor played with in a Swiss round
type Color int

const (
	White Color = 1
	Black Color = -1
)

// Bracket names, in display order
const (
	BracketMain        = "Main"
	BracketConsolation = "Consolation"
	BracketWinners     = "Winners"
	BracketLosers      = "Losers"
	BracketFinals      = "Finals"
)

// Competitor is the engine's view of a participant. Score is the already computed standing used by Swiss,
// the remaining fields are the pairing history
type Competitor struct {
	ID           string
	Score        float64
	Rating       float64
	PairedUpDown bool     // Has been paired into a neighbouring score group before
	ReceivedBye  bool     // Has already received a bye
	Avoid        []string // Ids of previous opponents
	Colors       []Color  // Colours played, oldest first
}

// Path points at the match a competitor advances to
type Path struct {
	Round int
	Match int
}

// Match is a single generated pairing. A and B hold competitor ids, an empty string is an unassigned slot
type Match struct {
	Round   int
	Match   int
	A       string
	B       string
	Win     *Path // Where the winner goes, nil for a final
	Loss    *Path // Where the loser goes, only set in double elimination and for consolation matches
	Bracket string
}

// Active reports whether both slots are filled
func (m Match) Active() bool {
	return m.A != "" && m.B != ""
}

// Record is a Match that has been persisted by a StorageEngine
type Record struct {
	Match
	ID     string
	Status Status
	Winner string
}

// StorageEngine is a backing that stores generated brackets and drives winners along their paths
type StorageEngine interface {
	SaveBracket(event string, format Format, matches []Match) (string, error)
	Brackets(event string) ([]string, error)
	Matches(bracketID string) ([]Record, error)
	RecordResult(bracketID string, round, match int, winner string) error
	Close() error
}
