// ABOUTME: SQLite database schema for intake storage
// ABOUTME: Session checkpoints, retrieval chunks, tickets, and user memory
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Conversation state checkpoints, one row per session
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    user_id TEXT,
    version INTEGER NOT NULL,
    state TEXT NOT NULL,
    completed INTEGER DEFAULT 0,
    expires_at INTEGER DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Reference document chunks with embedding vectors
CREATE TABLE IF NOT EXISTS document_chunks (
    id TEXT PRIMARY KEY,
    document_hash TEXT NOT NULL,
    source_name TEXT NOT NULL,
    category TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    content TEXT NOT NULL,
    vector BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Finalized emergency tickets
CREATE TABLE IF NOT EXISTS tickets (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    user_id TEXT,
    status TEXT NOT NULL DEFAULT 'URGENT',
    info TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Long-term memory for authenticated reporters
CREATE TABLE IF NOT EXISTS user_memory (
    user_id TEXT PRIMARY KEY,
    memory TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_chunks_hash ON document_chunks(document_hash);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON document_chunks(source_name);
CREATE INDEX IF NOT EXISTS idx_chunks_category ON document_chunks(category);
CREATE INDEX IF NOT EXISTS idx_tickets_user ON tickets(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_tickets_session ON tickets(session_id);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 2
