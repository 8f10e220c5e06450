package sqlite

// Table names of the host application's index.
const (
	signaturesTable  = "Signatures"
	blocksTable      = "Blocks"
	ownedBlocksTable = "Signatures_OwnedBlocks"
)

// Schema DDL for the tables the migration touches. The host application
// owns the real schema; these statements only bootstrap an empty profile and
// test fixtures, and leave existing tables alone.
const (
	createSignatures = `CREATE TABLE IF NOT EXISTS Signatures (
    Record_RecordID INTEGER PRIMARY KEY AUTOINCREMENT,
    PathToDataFile TEXT
);`

	createBlocks = `CREATE TABLE IF NOT EXISTS Blocks (
    BlockId BLOB PRIMARY KEY,
    BlockTag INTEGER,
    PathToDataFile TEXT
);`

	createOwnedBlocks = `CREATE TABLE IF NOT EXISTS Signatures_OwnedBlocks (
    Record_RecordID INTEGER,
    BlockID BLOB,
    BlockTag INTEGER
);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createSignatures,
	createBlocks,
	createOwnedBlocks,
}
