// Package sample builds a deterministic demonstration table.
package sample

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/tableparquet"
)

var (
	forenames = []string{"Celaena", "Gabe", "Rose", "Chris", "Girton", "Nick", "Aiana", "Julia", "Curtis", "Manuela", "Spike"}
	surnames  = []string{"Smith", "Curts", "Power", "Stark", "Robinson", "Askew", "Maximus"}
	// A nil age is written as null.
	ages     = []any{int32(19), int32(23), int32(47), int32(71), nil, int32(27)}
	lastSeen = []time.Time{
		time.Date(2018, 9, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 7, 13, 0, 0, 0, 0, time.UTC),
		time.Date(1418, 5, 21, 0, 0, 0, 0, time.UTC),
	}
)

// NumScores is the number of random scores combined with every other value.
const NumScores = 10

// NumRows returns the number of rows Generate returns.
func NumRows() int {
	return len(forenames) * len(surnames) * len(ages) * len(lastSeen) * NumScores
}

// Columns returns the columns of the demonstration table.
func Columns() []tableparquet.Column {
	return []tableparquet.Column{
		{Name: "id", Type: tableparquet.TypeInt32},
		{Name: "name", Type: tableparquet.TypeText},
		{Name: "age", Type: tableparquet.TypeInt32},
		{Name: "lastseen", Type: tableparquet.TypeDatetime},
		{Name: "score", Type: tableparquet.TypeReal},
		{Name: "session", Type: tableparquet.TypeUUID},
	}
}

// Generate returns the demonstration table: the cross product of fixed
// forenames, surnames, ages and dates with NumScores random scores, numbered
// from 1. The same source state always yields the same table.
func Generate(src *rand.ChaCha8) (*tableparquet.Table, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: random source cannot be nil", tableparquet.ErrInvalidInput)
	}

	rng := rand.New(src)
	scores := make([]float64, NumScores)
	for i := range scores {
		scores[i] = rng.Float64()
	}

	table := tableparquet.NewTable("demo", Columns()...)
	table.Rows = make([]tableparquet.Row, 0, NumRows())

	id := int32(1)
	for _, forename := range forenames {
		for _, surname := range surnames {
			for _, age := range ages {
				for _, seen := range lastSeen {
					for _, score := range scores {
						session, err := uuid.NewRandomFromReader(src)
						if err != nil {
							return nil, fmt.Errorf("failed to generate session id: %w", err)
						}
						if err := table.AddRow(id, forename+" "+surname, age, seen, score, session); err != nil {
							return nil, err
						}
						id++
					}
				}
			}
		}
	}

	return table, nil
}
