package database

import "github.com/jackc/pgx/v5"

// ReadWrite is the default isolation used by ledger mutations. Serialization
// per challenge comes from row locks, so READ COMMITTED is sufficient.
var ReadWrite = pgx.TxOptions{
	IsoLevel:   pgx.ReadCommitted,
	AccessMode: pgx.ReadWrite,
}

// ReadOnlySnapshot gives a consistent view across several tables for reporting
var ReadOnlySnapshot = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}
