// Enrollment utility: adds one identity to the watchlist store from a
// face image. The running daemon picks the new entry up on its next
// gallery reload.
package main

import (
	"flag"
	"fmt"
	"image/jpeg"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pauldevelopai/alibi-sub001/internal/config"
	"github.com/pauldevelopai/alibi-sub001/internal/watchlist"
)

func main() {
	var (
		imagePath = flag.String("image", "", "path to a JPEG face crop")
		label     = flag.String("label", "", "display label for the entry")
		sourceRef = flag.String("source-ref", "", "legal/administrative justification reference (required)")
		storePath = flag.String("store", "", "watchlist store path (default from config)")
	)
	flag.Parse()

	if *imagePath == "" || *label == "" || *sourceRef == "" {
		flag.Usage()
		os.Exit(2)
	}

	path := *storePath
	if path == "" {
		path = config.Default().Watchlist.StorePath
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		log.Fatalf("Open image: %v", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		log.Fatalf("Decode image: %v", err)
	}

	entry := watchlist.Entry{
		PersonID:  uuid.NewString(),
		Label:     *label,
		Embedding: watchlist.Embed(img),
		AddedTS:   time.Now(),
		SourceRef: *sourceRef,
	}

	if err := watchlist.NewStore(path).Enroll(entry); err != nil {
		log.Fatalf("Enroll: %v", err)
	}

	fmt.Printf("Enrolled %s as %s (%s)\n", entry.PersonID, entry.Label, path)
}
