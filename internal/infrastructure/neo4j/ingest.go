package neo4j

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"
	"github.com/policysage/policysage-api/internal/domain/model"
	"github.com/policysage/policysage-api/internal/domain/repository"
)

const (
	documentLabel = "Document"
	relatedLabel  = "Entity"
)

// Record nodes are keyed by (id, document), so the same id in two documents
// yields two nodes and deleting one document never touches the other.
var reservedProperties = map[string]bool{"id": true, "document": true}

// UpsertRecords creates the Document node and one profile-labelled node per
// record, each linked to the document through the profile's source
// relationship. Records with a Related entry also get one outgoing edge.
// Record ids only need to be unique within their document.
func (c *Client) UpsertRecords(ctx context.Context, document string, records []repository.Record) error {
	if len(records) == 0 {
		return nil
	}

	var params []map[string]any
	byRelation := map[string][]map[string]any{}
	for i, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("record %d of %s: id is required", i, document)
		}
		props := map[string]any{}
		for k, v := range rec.Properties {
			if !model.IsIdentifier(k) {
				return fmt.Errorf("record %s: property %q is not a valid identifier", rec.ID, k)
			}
			if reservedProperties[k] {
				return fmt.Errorf("record %s: property %q is reserved", rec.ID, k)
			}
			props[k] = v
		}
		params = append(params, map[string]any{"id": rec.ID, "props": props})

		if rec.Related != nil {
			if !model.IsIdentifier(rec.Related.Type) || rec.Related.Type == c.profile.SourceRelationship {
				return fmt.Errorf("record %s: invalid related relationship type %q", rec.ID, rec.Related.Type)
			}
			byRelation[rec.Related.Type] = append(byRelation[rec.Related.Type], map[string]any{
				"id":      rec.ID,
				"related": rec.Related.Name,
			})
		}
	}

	query, err := upsertQuery(c.profile)
	if err != nil {
		return err
	}
	_, err = neo4j.ExecuteQuery(ctx, c.driver, query,
		map[string]any{"document": document, "records": params},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(""),
	)
	if err != nil {
		return fmt.Errorf("neo4j record upsert failed for document %s: %w", document, err)
	}

	relTypes := make([]string, 0, len(byRelation))
	for relType := range byRelation {
		relTypes = append(relTypes, relType)
	}
	sort.Strings(relTypes)

	for _, relType := range relTypes {
		_, err := neo4j.ExecuteQuery(ctx, c.driver, relatedQuery(c.profile, relType),
			map[string]any{"document": document, "links": byRelation[relType]},
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(""),
		)
		if err != nil {
			return fmt.Errorf("neo4j %s edge creation failed for document %s: %w", relType, document, err)
		}
	}

	log.Printf("[Neo4j] Upserted Document %s + %d %s nodes", document, len(params), c.profile.Label)
	return nil
}

// DeleteDocument removes a document node and every record sourced from it.
func (c *Client) DeleteDocument(ctx context.Context, document string) error {
	query := fmt.Sprintf(`
		MATCH (d:%s)
		WHERE d[$nameAttr] = $document
		OPTIONAL MATCH (n:%s)-[s]->(d)
		WHERE type(s) = $sourceRel
		DETACH DELETE n, d
	`, quoteIdentifier(documentLabel), quoteIdentifier(c.profile.Label))

	_, err := neo4j.ExecuteQuery(ctx, c.driver, query,
		map[string]any{
			"document":  document,
			"nameAttr":  c.sourceNameAttribute(),
			"sourceRel": c.profile.SourceRelationship,
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(""),
	)
	if err != nil {
		return fmt.Errorf("neo4j delete failed for document %s: %w", document, err)
	}

	log.Printf("[Neo4j] Deleted Document %s and its %s nodes", document, c.profile.Label)
	return nil
}

func (c *Client) sourceNameAttribute() string {
	if c.profile.SourceNameAttribute == "" {
		return "name"
	}
	return c.profile.SourceNameAttribute
}

// upsertQuery writes identifiers from the validated profile only; record data
// travels in parameters.
func upsertQuery(p model.Profile) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	nameAttr := p.SourceNameAttribute
	if nameAttr == "" {
		nameAttr = "name"
	}
	return fmt.Sprintf(`
		MERGE (d:%s {%s: $document})
		WITH d
		UNWIND $records AS rec
		MERGE (n:%s {id: rec.id, document: $document})
		SET n += rec.props
		MERGE (n)-[:%s]->(d)
	`, quoteIdentifier(documentLabel), quoteIdentifier(nameAttr),
		quoteIdentifier(p.Label), quoteIdentifier(p.SourceRelationship)), nil
}

func relatedQuery(p model.Profile, relType string) string {
	return fmt.Sprintf(`
		UNWIND $links AS link
		MATCH (n:%s {id: link.id, document: $document})
		MERGE (m:%s {name: link.related})
		MERGE (n)-[:%s]->(m)
	`, quoteIdentifier(p.Label), quoteIdentifier(relatedLabel), quoteIdentifier(relType))
}
