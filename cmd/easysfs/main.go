package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/carbocation/pfx"

	easysfs "github.com/itots/easySFS"
)

func main() {
	vcfPath := flag.String("i", "", "Name of the variant input file being converted")
	popPath := flag.String("p", "", "Input file containing population assignments per individual")
	projections := flag.String("proj", "", "Comma-separated projection sizes, one per population")
	preview := flag.Bool("preview", false, "Preview the number of segregating sites per population for different projection values")
	outdir := flag.String("o", "output", "Directory to write output SFS to")
	ploidy := flag.Int("ploidy", 2, "Ploidy. Default is 2; use 1 for haploid data")
	prefix := flag.String("prefix", "", "Prefix for all output SFS file names")
	unfolded := flag.Bool("unfolded", false, "Generate unfolded SFS. This assumes the variant file is accurately polarized")
	dtype := flag.String("dtype", "float", "Data type for output SFS bins: float or int")
	allSNPs := flag.Bool("a", false, "Keep all variants within each locus (do not sample one variant per locus)")
	force := flag.Bool("f", false, "Force overwriting directories and existing files")
	verbose := flag.Bool("v", false, "Verbose output")
	bootstrap := flag.Int("b", 0, "Perform bootstrap resampling with this many replicates")
	seed := flag.Int64("s", 0, "Base seed for bootstrap resampling")
	blockSize := flag.Int("k", 0, "Block size (in variants) for block bootstrap resampling")
	threads := flag.Int("t", 0, "Number of parallel workers for bootstrapping")
	flag.Parse()

	if *vcfPath == "" || *popPath == "" {
		flag.PrintDefaults()
		log.Fatalln("Both the variant file (-i) and the population file (-p) are required")
	}
	switch *dtype {
	case "float", "int":
	default:
		log.Fatalln("dtype must be float or int, got", *dtype)
	}

	seeded := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "s" {
			seeded = true
		}
	})

	pops, err := easysfs.ReadPopulations(*popPath)
	if err != nil {
		log.Fatalln(pfx.Err(err))
	}
	log.Printf("Processing %d populations - %v", len(pops.Names), pops.Names)
	if *verbose {
		for _, pop := range pops.Names {
			log.Println(pop, pops.Members[pop])
		}
	}

	samples, err := easysfs.ReadSampleNames(*vcfPath)
	if err != nil {
		log.Fatalln(pfx.Err(err))
	}

	// Individuals present in only one input are excluded after an explicit
	// go-ahead, so a silently truncated analysis needs user consent.
	if report := pops.Reconcile(samples); !report.Empty() {
		if len(report.OnlyInMapping) > 0 {
			fmt.Printf("Samples in pops file not present in variant file: %s\n", strings.Join(report.OnlyInMapping, ", "))
		}
		if len(report.OnlyInTable) > 0 {
			fmt.Printf("Samples in variant file not present in pops file: %s\n", strings.Join(report.OnlyInTable, ", "))
		}

		if !*force && !promptYesNo("Continue, excluding samples not in both pops file and variant file? (yes/no)") {
			os.Exit(0)
		}
		for _, pop := range pops.Exclude(report.OnlyInMapping) {
			log.Println("Empty population, removing -", pop)
		}
		if len(pops.Names) == 0 {
			log.Fatalln("No populations left after exclusion")
		}
	}

	rngSeed := time.Now().UnixNano()
	if seeded {
		rngSeed = *seed
	}
	rng := rand.New(rand.NewSource(rngSeed))

	if !*allSNPs {
		log.Println("Sampling one variant per locus; use -a to keep all variants")
	}
	genotypes, err := easysfs.ReadGenotypes(*vcfPath, *allSNPs, rng, nil)
	if err != nil {
		log.Fatalln(pfx.Err(err))
	}
	if *verbose {
		log.Printf("Number of variants retained: %d", len(genotypes.Rows))
	}

	if *preview {
		fmt.Print(previewBanner)
		if err := easysfs.Preview(os.Stdout, genotypes, pops, *ploidy, *unfolded, nil); err != nil {
			log.Fatalln(pfx.Err(err))
		}
		return
	}

	if *projections == "" {
		log.Fatalln("Either --preview or --proj must be specified.")
	}
	sizes, err := easysfs.ParseProjections(*projections)
	if err != nil {
		log.Fatalln(err)
	}

	runPrefix := *prefix
	if runPrefix == "" {
		base := filepath.Base(*vcfPath)
		if dot := strings.Index(base, "."); dot > 0 {
			base = base[:dot]
		}
		runPrefix = base
	}
	if *verbose {
		log.Println("Prefix -", runPrefix)
	}

	cfg := &easysfs.Config{
		OutDir:      *outdir,
		Prefix:      runPrefix,
		Projections: sizes,
		Ploidy:      *ploidy,
		Unfolded:    *unfolded,
		IntBins:     *dtype == "int",
		Force:       *force,
		Verbose:     *verbose,
		Replicates:  *bootstrap,
		BlockSize:   *blockSize,
		Seed:        *seed,
		Seeded:      seeded,
		Threads:     *threads,
	}

	if err := easysfs.Run(cfg, genotypes, pops); err != nil {
		log.Fatalln(err)
	}
	log.Println("Done.")
}

const previewBanner = `
Running preview mode. This prints the number of segregating sites retained
when projecting each population down to each possible sample size. Larger
projections keep more samples but can discard sites with missing calls;
choose the value that balances the two and re-run with --proj.

`

func promptYesNo(question string) bool {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println()
		fmt.Println(question)
		if !scanner.Scan() {
			return false
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "yes":
			return true
		case "no":
			return false
		}
	}
}
