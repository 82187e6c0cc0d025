package db

import "time"

// User maps users. Editors register authors explicitly; rows are never deleted.
type User struct {
	ID   int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name string `gorm:"column:name;type:text;not null;unique"`
}

func (User) TableName() string { return "users" }

// Source maps sources. The url column holds the canonical form
// (scheme+host+path, no query or fragment); uniqueness is not enforced,
// duplicates are only detected. Every source references a registered user;
// the author foreign key backs that up in the schema, and users are never
// deleted, so RESTRICT never fires in practice.
type Source struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	URL       string    `gorm:"column:url;type:text;not null;index"`
	Title     string    `gorm:"column:title;type:text;not null;default:''"`
	AuthorID  int64     `gorm:"column:author_id;type:bigint;not null;index"`
	Author    User      `gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:RESTRICT"`
	Comment   string    `gorm:"column:comment;type:text;not null;default:''"`
	ContentMD string    `gorm:"column:content_md;type:text;not null;default:''"`
	State     int       `gorm:"column:state;type:integer;not null;default:0;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Source) TableName() string { return "sources" }

// Keyword maps keywords. Tokens are stored in canonical form and are
// globally unique; rows are created lazily and never deleted, so orphaned
// tokens are tolerated.
type Keyword struct {
	ID    int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Token string `gorm:"column:token;type:text;not null;unique"`
}

func (Keyword) TableName() string { return "keywords" }

// SourceKeyword maps sources_keywords, the many-to-many join between sources
// and keywords. A (source, keyword) pair occurs at most once, and both sides
// are real rows enforced by foreign keys.
type SourceKeyword struct {
	ID        int64   `gorm:"column:id;primaryKey;autoIncrement"`
	SourceID  int64   `gorm:"column:source_id;type:bigint;not null;uniqueIndex:sources_keywords_pair_unique;index"`
	Source    Source  `gorm:"foreignKey:SourceID;references:ID;constraint:OnDelete:CASCADE"`
	KeywordID int64   `gorm:"column:keyword_id;type:bigint;not null;uniqueIndex:sources_keywords_pair_unique;index"`
	Keyword   Keyword `gorm:"foreignKey:KeywordID;references:ID;constraint:OnDelete:RESTRICT"`
}

func (SourceKeyword) TableName() string { return "sources_keywords" }

func autoMigrateModels() []any {
	return []any{
		&User{},
		&Source{},
		&Keyword{},
		&SourceKeyword{},
	}
}
