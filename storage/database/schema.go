package database

// ColumnType is a portable column type, rendered by each Dialect.
type ColumnType int

const (
	TypeID ColumnType = iota // uuid stored as text
	TypeString
	TypeText
	TypeInteger
	TypeBoolean
	TypeDecimal
	TypeTimestamp
)

type (
	Column struct {
		Name       string
		Type       ColumnType
		Size       int // TypeString only
		PrimaryKey bool
		NotNull    bool
		// Default is a Go value (string, int, bool) rendered by the Dialect; nil means no default.
		Default    interface{}
		References string // e.g. "users(id)"
	}

	Index struct {
		Name    string
		Columns []string
		Unique  bool
	}

	Table struct {
		Name    string
		Columns []Column
		Indexes []Index
	}

	Schema []Table
)

func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// declaresUnique reports whether cols are the primary key or the columns of a unique index of t.
func (t Table) declaresUnique(cols []string) bool {
	if len(cols) == 1 {
		if c, ok := t.Column(cols[0]); ok && c.PrimaryKey {
			return true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Unique && sameColumns(idx.Columns, cols) {
			return true
		}
	}
	return false
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AppSchema is the declared schema of the application.
var AppSchema = Schema{
	{
		Name: "users",
		Columns: []Column{
			{Name: "id", Type: TypeID, PrimaryKey: true},
			{Name: "username", Type: TypeString, Size: 100, NotNull: true, Default: ""},
			{Name: "password_hash", Type: TypeText, NotNull: true, Default: ""},
			{Name: "role", Type: TypeString, Size: 20, NotNull: true, Default: "user"},
			{Name: "is_active", Type: TypeBoolean, NotNull: true, Default: true},
			{Name: "company_id", Type: TypeID},
			{Name: "created_at", Type: TypeTimestamp},
			{Name: "updated_at", Type: TypeTimestamp},
			{Name: "last_login", Type: TypeTimestamp},
		},
		Indexes: []Index{
			{Name: "ux_users_username", Columns: []string{"username"}, Unique: true},
		},
	},
	{
		Name: "companies",
		Columns: []Column{
			{Name: "id", Type: TypeID, PrimaryKey: true},
			{Name: "user_id", Type: TypeID, References: "users(id)"},
			{Name: "name", Type: TypeString, Size: 200, NotNull: true, Default: ""},
			{Name: "address", Type: TypeText, NotNull: true, Default: ""},
			{Name: "tax_id", Type: TypeString, Size: 50, NotNull: true, Default: ""},
			{Name: "phone", Type: TypeString, Size: 50, NotNull: true, Default: ""},
			{Name: "logo", Type: TypeString, Size: 500, NotNull: true, Default: ""},
			{Name: "created_at", Type: TypeTimestamp},
			{Name: "updated_at", Type: TypeTimestamp},
		},
		Indexes: []Index{
			{Name: "idx_companies_user_id", Columns: []string{"user_id"}},
		},
	},
	{
		Name: "clients",
		Columns: []Column{
			{Name: "id", Type: TypeID, PrimaryKey: true},
			{Name: "user_id", Type: TypeID, References: "users(id)"},
			{Name: "name", Type: TypeString, Size: 200, NotNull: true, Default: ""},
			{Name: "whatsapp", Type: TypeString, Size: 30, NotNull: true, Default: ""},
			{Name: "email", Type: TypeString, Size: 200, NotNull: true, Default: ""},
			{Name: "created_at", Type: TypeTimestamp},
			{Name: "updated_at", Type: TypeTimestamp},
		},
		Indexes: []Index{
			{Name: "idx_clients_user_id", Columns: []string{"user_id"}},
		},
	},
	{
		Name: "receipts",
		Columns: []Column{
			{Name: "id", Type: TypeID, PrimaryKey: true},
			{Name: "user_id", Type: TypeID, References: "users(id)"},
			{Name: "receipt_number", Type: TypeString, Size: 50, NotNull: true, Default: ""},
			{Name: "sequence", Type: TypeInteger, NotNull: true, Default: 0},
			{Name: "client_id", Type: TypeID},
			{Name: "company_id", Type: TypeID},
			{Name: "description", Type: TypeText, NotNull: true, Default: ""},
			{Name: "amount", Type: TypeDecimal, NotNull: true, Default: 0},
			{Name: "payment_method", Type: TypeString, Size: 20, NotNull: true, Default: "cash"},
			{Name: "created_at", Type: TypeTimestamp},
		},
		Indexes: []Index{
			{Name: "ux_receipts_user_number", Columns: []string{"user_id", "receipt_number"}, Unique: true},
			{Name: "idx_receipts_user_created", Columns: []string{"user_id", "created_at"}},
			{Name: "idx_receipts_client_id", Columns: []string{"client_id"}},
		},
	},
	{
		// high-water mark of each user's receipt numbering, deleted receipts never lower it
		Name: "receipt_counters",
		Columns: []Column{
			{Name: "user_id", Type: TypeID, PrimaryKey: true, References: "users(id)"},
			{Name: "last_sequence", Type: TypeInteger, NotNull: true, Default: 0},
		},
	},
	{
		Name: "settings",
		Columns: []Column{
			{Name: "user_id", Type: TypeID, PrimaryKey: true},
			{Name: "thermal_width", Type: TypeInteger, NotNull: true, Default: 58},
			{Name: "currency", Type: TypeString, Size: 3, NotNull: true, Default: "MAD"},
			{Name: "locale", Type: TypeString, Size: 5, NotNull: true, Default: "fr"},
			{Name: "receipt_prefix", Type: TypeString, Size: 10, NotNull: true, Default: "REC"},
			{Name: "default_company_id", Type: TypeID},
			{Name: "updated_at", Type: TypeTimestamp},
		},
		Indexes: []Index{
			// legacy settings tables are keyed by an integer id, upserts need user_id to be unique
			{Name: "ux_settings_user_id", Columns: []string{"user_id"}, Unique: true},
		},
	},
	{
		Name: "app_settings",
		Columns: []Column{
			{Name: "id", Type: TypeInteger, PrimaryKey: true},
			{Name: "app_name", Type: TypeString, Size: 100, NotNull: true, Default: ""},
			{Name: "logo_url", Type: TypeString, Size: 500, NotNull: true, Default: ""},
			{Name: "favicon_url", Type: TypeString, Size: 500, NotNull: true, Default: ""},
			{Name: "seo_title_suffix", Type: TypeString, Size: 100, NotNull: true, Default: ""},
			{Name: "seo_meta_description", Type: TypeText, NotNull: true, Default: ""},
			{Name: "seo_keywords", Type: TypeText, NotNull: true, Default: ""},
			{Name: "seo_og_title", Type: TypeString, Size: 200, NotNull: true, Default: ""},
			{Name: "seo_og_description", Type: TypeText, NotNull: true, Default: ""},
			{Name: "seo_og_image_url", Type: TypeString, Size: 500, NotNull: true, Default: ""},
			{Name: "seo_twitter_card", Type: TypeString, Size: 30, NotNull: true, Default: "summary_large_image"},
			{Name: "site_url", Type: TypeString, Size: 500, NotNull: true, Default: ""},
			{Name: "pwa_enabled", Type: TypeBoolean, NotNull: true, Default: true},
			{Name: "pwa_app_name", Type: TypeString, Size: 100, NotNull: true, Default: "Receipt App"},
			{Name: "pwa_short_name", Type: TypeString, Size: 30, NotNull: true, Default: "Receipts"},
			{Name: "pwa_description", Type: TypeText, NotNull: true, Default: "Receipt Management Application"},
			{Name: "pwa_theme_color", Type: TypeString, Size: 20, NotNull: true, Default: "#3B82F6"},
			{Name: "pwa_background_color", Type: TypeString, Size: 20, NotNull: true, Default: "#ffffff"},
			{Name: "pwa_icon_url", Type: TypeString, Size: 500, NotNull: true, Default: "/static/favicon.svg"},
			{Name: "updated_at", Type: TypeTimestamp},
		},
	},
}

// ManualMigration handles a column the generic ADD COLUMN step cannot express correctly.
// It only runs when Table exists and lacks Column.
type ManualMigration struct {
	Table  string
	Column string
	SQL    func(d Dialect) []string
}

// AppManualMigrations run before the generic column diff.
var AppManualMigrations = []ManualMigration{
	{
		// legacy single-tenant databases: companies predate users
		Table:  "companies",
		Column: "user_id",
		SQL: func(d Dialect) []string {
			return []string{"ALTER TABLE companies ADD COLUMN user_id " + d.ColumnType(Column{Type: TypeID}) + " REFERENCES users(id)"}
		},
	},
}
