package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dc0d/onexit"
	units "github.com/docker/go-units"

	"github.com/lily-mara/bork/extract"
	"github.com/lily-mara/bork/repo"
)

func main() {
	backendFlag := flag.String("backend", "file", "repository backend: file, s3, or ceph")

	s3Bucket := flag.String("s3-bucket", "", "s3 backend: bucket name")
	s3Prefix := flag.String("s3-prefix", "", "s3 backend: object key prefix")
	s3Region := flag.String("s3-region", "", "s3 backend: AWS region")
	s3Endpoint := flag.String("s3-endpoint", "", "s3 backend: custom endpoint (MinIO etc.)")
	s3PathStyle := flag.Bool("s3-path-style", false, "s3 backend: use path-style URLs")

	cephPool := flag.String("ceph-pool", "", "ceph backend: RADOS pool name")
	cephPrefix := flag.String("ceph-prefix", "", "ceph backend: object name prefix")
	cephCluster := flag.String("ceph-cluster", "ceph", "ceph backend: cluster name")
	cephUser := flag.String("ceph-user", "client.admin", "ceph backend: client user")
	cephConf := flag.String("ceph-conf", "", "ceph backend: conf file path (empty = default search path)")

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: bork [flags] <repository path>")
		os.Exit(1)
	}
	repoPath := flag.Arg(0)

	onexit.Register(func() {
		if err := extract.CloseOpenOutput(); err != nil {
			fmt.Fprintln(os.Stderr, "bork: closing in-progress output file:", err)
		}
	})

	backend, err := resolveBackend(*backendFlag, repoPath, s3Options{
		bucket: *s3Bucket, prefix: *s3Prefix, region: *s3Region,
		endpoint: *s3Endpoint, pathStyle: *s3PathStyle,
	}, cephOptions{
		pool: *cephPool, prefix: *cephPrefix, cluster: *cephCluster,
		user: *cephUser, conf: *cephConf,
	})
	if err != nil {
		fail(err)
	}

	configBytes, err := backend.ReadConfig()
	if err != nil {
		fail(err)
	}
	if _, err := repo.RepositoryID(configBytes); err != nil {
		fail(err)
	}

	store, err := extract.BuildStore(backend)
	if err != nil {
		fail(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		fail(err)
	}
	outDir := filepath.Join(wd, "example", "extracted")

	summary, err := extract.Run(store, outDir)
	if err != nil {
		fail(err)
	}

	fmt.Printf("extracted %d archives, %d files, %s\n",
		summary.ArchivesWritten, summary.FilesWritten, units.HumanSize(float64(summary.BytesWritten)))
}

type s3Options struct {
	bucket, prefix, region, endpoint string
	pathStyle                        bool
}

type cephOptions struct {
	pool, prefix, cluster, user, conf string
}

func resolveBackend(kind, repoPath string, s3opts s3Options, cephopts cephOptions) (repo.Backend, error) {
	switch kind {
	case "file":
		return &repo.FileBackend{Path: repoPath}, nil
	case "s3":
		return &repo.S3Backend{
			Bucket:         s3opts.bucket,
			Prefix:         s3opts.prefix,
			Region:         s3opts.region,
			Endpoint:       s3opts.endpoint,
			ForcePathStyle: s3opts.pathStyle,
		}, nil
	case "ceph":
		return &repo.CephBackend{
			Pool:        cephopts.pool,
			Prefix:      cephopts.prefix,
			ClusterName: cephopts.cluster,
			UserName:    cephopts.user,
			ConfFile:    cephopts.conf,
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "bork:", err)
	os.Exit(1)
}
