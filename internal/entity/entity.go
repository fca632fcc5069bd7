package entity

// Entity is anything persistable as an Elasticsearch document. The slug is the
// document id, so writing the same slug twice overwrites rather than duplicates.
type Entity interface {
	Slug() string
}
