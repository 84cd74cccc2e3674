package store

// Schema creates the activity and profile tables. All timestamps are unix
// milliseconds. extracted_json and profile_json hold arbitrary JSON objects;
// the store never interprets them beyond valid-JSON defaults.
const Schema = `
-- One row per collected page or search-result set
CREATE TABLE IF NOT EXISTS user_activities (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL,
    platform       TEXT NOT NULL,
    url            TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    content        TEXT NOT NULL DEFAULT '',
    extracted_json TEXT NOT NULL DEFAULT '{}',
    timestamp      INTEGER NOT NULL,
    created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_user_time ON user_activities(user_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_activities_user_platform ON user_activities(user_id, platform);

-- Latest generated profile per user (upsert, no history)
CREATE TABLE IF NOT EXISTS user_profiles (
    user_id      TEXT PRIMARY KEY,
    profile_json TEXT NOT NULL DEFAULT '{}',
    last_updated INTEGER NOT NULL,
    created_at   INTEGER NOT NULL
);
`
