package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mentora/mentora/store"
)

// ListAgentDefinitions retrieves agent definitions matching the find conditions.
func (d *DB) ListAgentDefinitions(ctx context.Context, find *store.FindAgentDefinition) ([]*store.AgentDefinition, error) {
	query := `SELECT name, role, prompt_template, reasoning_effort, tool_access, web_search, capabilities, updated_ts
		FROM agent_definition WHERE 1=1`
	args := []any{}

	if find.Name != nil {
		query += fmt.Sprintf(" AND name = %s", placeholder(len(args)+1))
		args = append(args, *find.Name)
	}
	if find.Role != nil {
		query += fmt.Sprintf(" AND role = %s", placeholder(len(args)+1))
		args = append(args, string(*find.Role))
	}
	query += " ORDER BY name"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent definitions: %w", err)
	}
	defer rows.Close()

	var defs []*store.AgentDefinition
	for rows.Next() {
		var def store.AgentDefinition
		var capabilities string
		if err := rows.Scan(&def.Name, &def.Role, &def.PromptTemplate, &def.ReasoningEffort,
			&def.ToolAccess, &def.WebSearch, &capabilities, &def.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan agent definition: %w", err)
		}
		def.Capabilities = unmarshalStrings(capabilities)
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}

// UpsertAgentDefinition creates or replaces an agent definition.
func (d *DB) UpsertAgentDefinition(ctx context.Context, upsert *store.AgentDefinition) (*store.AgentDefinition, error) {
	capabilities, err := marshalJSON(upsert.Capabilities)
	if err != nil {
		return nil, err
	}
	upsert.UpdatedTs = time.Now().Unix()

	stmt := `INSERT INTO agent_definition (name, role, prompt_template, reasoning_effort, tool_access, web_search, capabilities, updated_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			role = EXCLUDED.role,
			prompt_template = EXCLUDED.prompt_template,
			reasoning_effort = EXCLUDED.reasoning_effort,
			tool_access = EXCLUDED.tool_access,
			web_search = EXCLUDED.web_search,
			capabilities = EXCLUDED.capabilities,
			updated_ts = EXCLUDED.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt, upsert.Name, string(upsert.Role), upsert.PromptTemplate,
		upsert.ReasoningEffort, upsert.ToolAccess, upsert.WebSearch, capabilities, upsert.UpdatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert agent definition: %w", err)
	}
	return upsert, nil
}
