// Package models holds GORM persistence models that are kept separate
// from their domain entities. Only the identity context uses this split:
// User carries password hashes and lockout bookkeeping we do not want
// shaped by ORM tags. The marketplace aggregates embed their own GORM
// mappings and persist directly.
package models
