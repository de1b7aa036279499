package domain

// EmbeddingDim is the platform-wide embedding dimensionality. Vector columns,
// indexes and the embedding adapter are all sized from it.
const EmbeddingDim = 1536

// Models lists every gorm model in migration order.
func Models() []interface{} {
	return []interface{}{
		&Tenant{},
		&Document{},
		&Passage{},
		&QueryRecord{},
		&QueryClusterAssignment{},
		&TopQueryRow{},
		&AnalyticsScopeLease{},
	}
}

// TenantScopedTables are the tables protected by row-level security.
func TenantScopedTables() []string {
	return []string{
		Document{}.TableName(),
		Passage{}.TableName(),
		QueryRecord{}.TableName(),
		QueryClusterAssignment{}.TableName(),
		TopQueryRow{}.TableName(),
	}
}
