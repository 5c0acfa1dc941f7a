package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// personalityMetadataKey is the BaseChunk.Metadata key that marks an
// exemplar's stage partition ("thought" or "response"), per spec §4.6's
// "personality exemplars partitioned by stage".
const personalityMetadataKey = "personality_stage"

// LoadBaseKnowledge scans dir for JSON files holding Tier 4 base-knowledge
// chunks (spec §6): each file is either the wrapper object
// {source_file, embed_model, chunk_method, chunks:[...]} or a bare array of
// chunks. Every chunk's L2 norm is precomputed here so SearchBaseKnowledge
// and SearchPersonalityExamples never recompute it per query.
//
// A missing directory is not an error: a deployment may simply run without a
// base corpus.
func LoadBaseKnowledge(dir string) ([]BaseChunk, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read base knowledge dir: %w", err)
	}

	var all []BaseChunk
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		chunks, err := loadBaseFile(path)
		if err != nil {
			return nil, fmt.Errorf("load base knowledge file %s: %w", path, err)
		}
		all = append(all, chunks...)
	}

	for i := range all {
		all[i].norm = l2Norm(all[i].Embedding)
	}
	return all, nil
}

func loadBaseFile(path string) ([]BaseChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var asArray []BaseChunk
	if err := json.Unmarshal(data, &asArray); err == nil {
		return asArray, nil
	}

	var asFile baseFile
	if err := json.Unmarshal(data, &asFile); err != nil {
		return nil, fmt.Errorf("unrecognized base knowledge shape: %w", err)
	}
	return asFile.Chunks, nil
}

// PartitionPersonalityExamples splits chunks into thought-stage and
// response-stage exemplar pools by their personality_stage metadata key.
// Chunks without that key belong to neither pool.
func PartitionPersonalityExamples(chunks []BaseChunk) (thoughtExamples, responseExamples []BaseChunk) {
	for _, c := range chunks {
		switch PersonalityStage(c.Metadata[personalityMetadataKey]) {
		case StageThought:
			thoughtExamples = append(thoughtExamples, c)
		case StageResponse:
			responseExamples = append(responseExamples, c)
		}
	}
	return thoughtExamples, responseExamples
}
