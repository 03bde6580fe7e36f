package roster

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-greetings/internal/config"
)

// decodeVCards reads a vCard stream. Every card is a roster row; BDAY and
// ANNIVERSARY act as the two date columns.
func decodeVCards(ctx context.Context, r io.Reader) (*Roster, error) {
	b := newBuilder(true, true)
	decoder := vcard.NewDecoder(r)

	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn(config.MsgCardSkipped,
				config.LogKeyComponent, config.CompRoster,
				config.LogKeyLine, index,
				config.LogKeyError, err,
			)
			b.roster.Skipped++
			if errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			continue
		}

		first, last := cardNames(card)
		b.add(index, rawRecord{
			id:          card.Value(vcard.FieldUID),
			first:       first,
			last:        last,
			email:       card.PreferredValue(vcard.FieldEmail),
			birthday:    card.Value(vcard.FieldBirthday),
			anniversary: card.Value(vcard.FieldAnniversary),
			department:  cardDepartment(card),
		})
	}
	return b.roster, nil
}

// cardNames prefers the structured N property and falls back to splitting FN.
func cardNames(card vcard.Card) (string, string) {
	if n := card.Name(); n != nil && (n.GivenName != "" || n.FamilyName != "") {
		return n.GivenName, n.FamilyName
	}
	fn := strings.TrimSpace(card.PreferredValue(vcard.FieldFormattedName))
	first, last, _ := strings.Cut(fn, " ")
	return first, last
}

// cardDepartment reads X-DEPARTMENT, else the unit component of ORG.
func cardDepartment(card vcard.Card) string {
	if dept := card.Value(config.VCardDepartment); dept != "" {
		return dept
	}
	parts := strings.Split(card.Value(vcard.FieldOrganization), config.VCardOrgSep)
	if len(parts) > 1 {
		return parts[1]
	}
	return ""
}
