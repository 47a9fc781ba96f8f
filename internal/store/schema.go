package store

var schema = []string{
	`CREATE TABLE IF NOT EXISTS targets (
	id INTEGER PRIMARY KEY,
	target_url TEXT NOT NULL,
	host_ip TEXT NOT NULL DEFAULT '',
	port_number TEXT NOT NULL DEFAULT '',
	url_scheme TEXT NOT NULL DEFAULT '',
	alternative_ips TEXT NOT NULL DEFAULT '[]',
	host_name TEXT NOT NULL DEFAULT '',
	host_path TEXT NOT NULL DEFAULT '',
	ip_url TEXT NOT NULL DEFAULT '',
	top_domain TEXT NOT NULL DEFAULT '',
	top_url TEXT NOT NULL DEFAULT '',
	scope BOOLEAN NOT NULL DEFAULT true,
	max_user_rank INTEGER NOT NULL DEFAULT -1,
	max_owtf_rank INTEGER NOT NULL DEFAULT -1
);`,
	`CREATE TABLE IF NOT EXISTS test_groups (
	code TEXT PRIMARY KEY,
	grp TEXT NOT NULL DEFAULT '',
	descrip TEXT NOT NULL DEFAULT '',
	hint TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 0
);`,
	`CREATE TABLE IF NOT EXISTS mappings (
	name TEXT NOT NULL,
	code TEXT NOT NULL,
	mapped_code TEXT NOT NULL,
	mapped_descrip TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (name, code)
);`,
	`CREATE TABLE IF NOT EXISTS plugin_outputs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	target_id INTEGER NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	plugin_key TEXT NOT NULL DEFAULT '',
	plugin_code TEXT NOT NULL,
	plugin_group TEXT NOT NULL DEFAULT '',
	plugin_type TEXT NOT NULL DEFAULT '',
	plugin_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	output TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	user_notes TEXT NOT NULL DEFAULT '',
	user_rank INTEGER NOT NULL DEFAULT -1,
	owtf_rank INTEGER NOT NULL DEFAULT -1,
	start_time TEXT NOT NULL DEFAULT '',
	end_time TEXT NOT NULL DEFAULT '',
	run_time TEXT NOT NULL DEFAULT ''
);`,
	`CREATE INDEX IF NOT EXISTS plugin_outputs_target ON plugin_outputs (target_id, plugin_code);`,
}
