package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/platform/neo4jdb"
)

// LineageRows is the flattened node and relationship parameters for one
// analysis.
type LineageRows struct {
	Analysis  map[string]any
	Donors    []map[string]any
	Specimens []map[string]any
	Samples   []map[string]any
	Files     []map[string]any
}

// BuildLineageRows flattens an analysis view. Entries with missing ids are
// skipped and repeated donors or specimens appear once.
func BuildLineageRows(v *types.AnalysisView, syncedAt time.Time) LineageRows {
	now := syncedAt.UTC().Format(time.RFC3339Nano)
	rows := LineageRows{
		Analysis: map[string]any{
			"id":            v.AnalysisID,
			"study_id":      v.StudyID,
			"state":         string(v.AnalysisState),
			"analysis_type": v.AnalysisType.Name,
			"created_at":    v.CreatedAt.UTC().Format(time.RFC3339Nano),
			"updated_at":    v.UpdatedAt.UTC().Format(time.RFC3339Nano),
			"synced_at":     now,
		},
	}
	seenDonor := map[string]bool{}
	seenSpecimen := map[string]bool{}
	for _, ce := range v.Samples {
		if ce == nil || ce.ID == "" {
			continue
		}
		if d := ce.Donor; d != nil && d.ID != "" && !seenDonor[d.ID] {
			seenDonor[d.ID] = true
			rows.Donors = append(rows.Donors, map[string]any{
				"id":                 d.ID,
				"study_id":           v.StudyID,
				"submitter_donor_id": d.SubmitterDonorID,
				"gender":             d.Gender,
				"synced_at":          now,
			})
		}
		if sp := ce.Specimen; sp != nil && sp.ID != "" && !seenSpecimen[sp.ID] {
			seenSpecimen[sp.ID] = true
			rows.Specimens = append(rows.Specimens, map[string]any{
				"id":                    sp.ID,
				"donor_id":              sp.DonorID,
				"study_id":              v.StudyID,
				"submitter_specimen_id": sp.SubmitterSpecimenID,
				"specimen_type":         sp.SpecimenType,
				"synced_at":             now,
			})
		}
		rows.Samples = append(rows.Samples, map[string]any{
			"id":                  ce.ID,
			"specimen_id":         ce.SpecimenID,
			"study_id":            v.StudyID,
			"submitter_sample_id": ce.SubmitterSampleID,
			"sample_type":         ce.SampleType,
			"synced_at":           now,
		})
	}
	for _, f := range v.Files {
		if f == nil || f.ObjectID == "" {
			continue
		}
		rows.Files = append(rows.Files, map[string]any{
			"id":          f.ObjectID,
			"file_name":   f.FileName,
			"file_type":   f.FileType,
			"file_size":   f.FileSize,
			"file_md5sum": f.FileMD5Sum,
			"file_access": f.FileAccess,
			"synced_at":   now,
		})
	}
	return rows
}

// UpsertAnalysisLineage mirrors an analysis and its donor, specimen, sample
// and file links into the graph. A nil client is a no-op.
func UpsertAnalysisLineage(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, v *types.AnalysisView) error {
	if client == nil || client.Driver == nil || v == nil || v.AnalysisID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rows := BuildLineageRows(v, time.Now())

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	{
		stmts := []string{
			`CREATE CONSTRAINT study_id_unique IF NOT EXISTS FOR (s:Study) REQUIRE s.id IS UNIQUE`,
			`CREATE CONSTRAINT analysis_id_unique IF NOT EXISTS FOR (a:Analysis) REQUIRE a.id IS UNIQUE`,
			`CREATE CONSTRAINT donor_id_unique IF NOT EXISTS FOR (d:Donor) REQUIRE d.id IS UNIQUE`,
			`CREATE CONSTRAINT specimen_id_unique IF NOT EXISTS FOR (sp:Specimen) REQUIRE sp.id IS UNIQUE`,
			`CREATE CONSTRAINT sample_id_unique IF NOT EXISTS FOR (sa:Sample) REQUIRE sa.id IS UNIQUE`,
			`CREATE CONSTRAINT file_id_unique IF NOT EXISTS FOR (f:File) REQUIRE f.id IS UNIQUE`,
		}
		for _, q := range stmts {
			if res, err := session.Run(ctx, q, nil); err != nil {
				if log != nil {
					log.Warn("neo4j schema init failed (continuing)", "error", err)
				}
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		run := func(q string, params map[string]any) error {
			res, err := tx.Run(ctx, q, params)
			if err != nil {
				return err
			}
			_, err = res.Consume(ctx)
			return err
		}

		if err := run(`
MERGE (s:Study {id: $analysis.study_id})
MERGE (a:Analysis {id: $analysis.id})
SET a += $analysis
MERGE (s)-[r:HAS_ANALYSIS]->(a)
SET r.synced_at = $analysis.synced_at
`, map[string]any{"analysis": rows.Analysis}); err != nil {
			return nil, err
		}

		if len(rows.Donors) > 0 {
			if err := run(`
UNWIND $rows AS d
MERGE (s:Study {id: d.study_id})
MERGE (n:Donor {id: d.id})
SET n += d
MERGE (s)-[r:HAS_DONOR]->(n)
SET r.synced_at = d.synced_at
`, map[string]any{"rows": rows.Donors}); err != nil {
				return nil, err
			}
		}
		if len(rows.Specimens) > 0 {
			if err := run(`
UNWIND $rows AS sp
MATCH (d:Donor {id: sp.donor_id})
MERGE (n:Specimen {id: sp.id})
SET n += sp
MERGE (d)-[r:HAS_SPECIMEN]->(n)
SET r.synced_at = sp.synced_at
`, map[string]any{"rows": rows.Specimens}); err != nil {
				return nil, err
			}
		}
		if len(rows.Samples) > 0 {
			if err := run(`
UNWIND $rows AS sa
MATCH (sp:Specimen {id: sa.specimen_id})
MATCH (a:Analysis {id: $analysis_id})
MERGE (n:Sample {id: sa.id})
SET n += sa
MERGE (sp)-[r:HAS_SAMPLE]->(n)
SET r.synced_at = sa.synced_at
MERGE (a)-[u:USES_SAMPLE]->(n)
SET u.synced_at = sa.synced_at
`, map[string]any{"rows": rows.Samples, "analysis_id": v.AnalysisID}); err != nil {
				return nil, err
			}
		}
		if len(rows.Files) > 0 {
			if err := run(`
UNWIND $rows AS f
MATCH (a:Analysis {id: $analysis_id})
MERGE (n:File {id: f.id})
SET n += f
MERGE (a)-[r:HAS_FILE]->(n)
SET r.synced_at = f.synced_at
`, map[string]any{"rows": rows.Files, "analysis_id": v.AnalysisID}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}
