package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"vantagebuild/proposal-engine/internal/config"
	"vantagebuild/proposal-engine/internal/services"
)

// Ingests market benchmark PDFs into the Qdrant index. Documents live in
// one subdirectory per advisor type:
//
//	benchmark_docs/
//	  quantity_surveyor/fee_survey_2025.pdf
//	  project_manager/rates_overview.pdf
//
// The subdirectory name becomes the segment used to filter retrieval.
func main() {
	docsDir := flag.String("dir", "./benchmark_docs", "directory of benchmark PDFs, one subdirectory per advisor type")
	flag.Parse()

	log.Println("🚀 Starting benchmark ingestion...")

	// Load configuration
	cfg := config.Load()

	ctx := context.Background()

	// Initialize services
	gemini, err := services.NewGeminiProvider(ctx, cfg.Provider.GeminiAPIKey, cfg.Provider.GeminiModel)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	index, err := services.NewBenchmarkIndex(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}

	if err := index.InitCollection(); err != nil {
		log.Fatalf("❌ Failed to initialize collection: %v", err)
	}

	chunker := services.NewTextChunker()

	segments, err := os.ReadDir(*docsDir)
	if err != nil {
		log.Fatalf("❌ Failed to read benchmark directory %s: %v", *docsDir, err)
	}

	successCount := 0
	failCount := 0

	for _, segmentDir := range segments {
		if !segmentDir.IsDir() {
			continue
		}
		segment := segmentDir.Name()

		files, err := os.ReadDir(filepath.Join(*docsDir, segment))
		if err != nil {
			log.Printf("⚠️  Failed to read segment directory %s: %v", segment, err)
			continue
		}

		for _, file := range files {
			if file.IsDir() || strings.ToLower(filepath.Ext(file.Name())) != ".pdf" {
				continue
			}

			path := filepath.Join(*docsDir, segment, file.Name())
			log.Printf("\n📄 Processing: %s", path)
			log.Printf("   Segment: %s", segment)

			// Extract text from PDF
			log.Printf("   📖 Extracting text...")
			text, err := services.ExtractPDFFile(path)
			if err != nil {
				log.Printf("   ❌ Failed to extract text: %v", err)
				failCount++
				continue
			}
			log.Printf("   ✅ Extracted %d characters", len(text))

			// Chunk the text
			log.Printf("   ✂️  Chunking text...")
			chunks := chunker.ChunkText(text, 1000, 200)
			log.Printf("   ✅ Created %d chunks", len(chunks))

			// Embed and store each chunk
			log.Printf("   🔄 Embedding and storing chunks...")
			stored := 0
			for i, chunk := range chunks {
				embedding, err := gemini.EmbedText(ctx, chunk)
				if err != nil {
					log.Printf("   ❌ Failed to generate embedding for chunk %d: %v", i+1, err)
					continue
				}

				docID := fmt.Sprintf("%s_%s_chunk_%d", segment, strings.TrimSuffix(file.Name(), ".pdf"), i)

				if err := index.UpsertBenchmark(ctx, docID, segment, chunk, embedding); err != nil {
					log.Printf("   ❌ Failed to store chunk %d: %v", i+1, err)
					continue
				}
				stored++

				if (i+1)%5 == 0 || i == len(chunks)-1 {
					log.Printf("   📊 Progress: %d/%d chunks stored", i+1, len(chunks))
				}
			}

			if stored == 0 {
				log.Printf("   ❌ No chunks stored for %s", file.Name())
				failCount++
				continue
			}

			log.Printf("   ✅ Successfully ingested %s", file.Name())
			successCount++
		}
	}

	// Summary
	log.Println("\n" + strings.Repeat("=", 60))
	log.Printf("📊 Ingestion Summary:")
	log.Printf("   ✅ Successful: %d documents", successCount)
	log.Printf("   ❌ Failed: %d documents", failCount)
	log.Println(strings.Repeat("=", 60))

	if failCount > 0 {
		log.Println("⚠️  Some documents failed to ingest. Please check the logs above.")
		os.Exit(1)
	}

	log.Println("✅ All benchmark documents ingested successfully!")
}
