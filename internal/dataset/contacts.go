package dataset

import (
	"os"
	"path/filepath"

	"dealflow/internal/eventlog"

	"github.com/rs/zerolog/log"
)

const contactsPrefix = "contacts_snapshot_"

var contactColumns = []string{
	"contact_id",
	"firstname",
	"lastname",
	"email",
	"lifecyclestage",
	"mql_date",
	"sql_date",
	"company_id",
	"company_name",
	"source",
	"fetch_timestamp",
}

func (w *Writer) ContactsPath() string {
	return filepath.Join(w.dir, contactsPrefix+w.stamp+".csv")
}

// WriteContacts writes the contact snapshot file.
func (w *Writer) WriteContacts(contacts []eventlog.Contact) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []string{
			c.ContactID,
			c.FirstName,
			c.LastName,
			c.Email,
			c.LifecycleStage,
			c.MQLDate,
			c.SQLDate,
			c.CompanyID,
			c.CompanyName,
			c.Source,
			c.FetchTimestamp,
		})
	}
	if err := writeCSV(w.ContactsPath(), contactColumns, rows); err != nil {
		return err
	}
	log.Info().Int("contacts", len(rows)).Str("path", w.ContactsPath()).Msg("Contacts written")
	return nil
}

// LoadContacts reads the most recently written contact snapshot in dir. It returns ErrNoDataset
// when contacts were never fetched.
func LoadContacts(dir string) ([]eventlog.Contact, error) {
	path, err := LatestFile(dir, contactsPrefix)
	if err != nil {
		return nil, err
	}
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	out := make([]eventlog.Contact, 0, len(rows))
	for _, row := range rows {
		source := row["source"]
		if source == "" {
			source = eventlog.UnknownSource
		}
		out = append(out, eventlog.Contact{
			ContactID:      row["contact_id"],
			FirstName:      row["firstname"],
			LastName:       row["lastname"],
			Email:          row["email"],
			LifecycleStage: row["lifecyclestage"],
			MQLDate:        row["mql_date"],
			SQLDate:        row["sql_date"],
			CompanyID:      row["company_id"],
			CompanyName:    row["company_name"],
			Source:         source,
			FetchTimestamp: row["fetch_timestamp"],
		})
	}
	log.Info().Str("file", filepath.Base(path)).Int("contacts", len(out)).Msg("Loaded contacts")
	return out, nil
}
