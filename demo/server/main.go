package main

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	shapefile "github.com/tingold/orb-shapefile"
)

type serverConfig struct {
	base      string
	addr      string
	clientDir string
}

func main() {
	if err := newCommand(serve).Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand(run func(serverConfig) error) *cobra.Command {
	var cfg serverConfig
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve a shapefile as GeoJSON and FlatGeobuf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&cfg.base, "shp", "s", "", "shapefile to serve, with or without the .shp extension")
	flags.StringVarP(&cfg.addr, "addr", "a", ":8080", "listen address")
	flags.StringVarP(&cfg.clientDir, "client", "c", filepath.Join("..", "client"), "directory of static client files")
	_ = cmd.MarkFlagRequired("shp")
	return cmd
}

func serve(cfg serverConfig) error {
	opts := shapefile.DefaultOptions()
	opts.VerifyRecordHeaders = true
	opts.Logger = slog.Default()

	shp, err := shapefile.Open(cfg.base, nil, opts)
	if err != nil {
		return err
	}

	h := shp.Header()
	log.Printf("Opened %s: %s, %d records", cfg.base, h.ShapeType, shp.RecordCount())

	fc, err := shp.FeatureCollection()
	if err != nil {
		_ = shp.Close()
		return err
	}
	geojsonData, err := json.Marshal(fc)
	if err != nil {
		_ = shp.Close()
		return err
	}

	var buf bytes.Buffer
	exportOpts := shapefile.DefaultExportOptions()
	exportOpts.Name = filepath.Base(cfg.base)
	exportOpts.IncludeIndex = false
	if err := shapefile.WriteFlatGeobuf(&buf, shp, exportOpts); err != nil {
		_ = shp.Close()
		return err
	}
	flatgeobufData := buf.Bytes()

	if err := shp.Close(); err != nil {
		log.Printf("Closing shapefile: %v", err)
	}

	fs := http.FileServer(http.Dir(cfg.clientDir))
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data.fgb":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Write(flatgeobufData)
		case "/data.geojson":
			w.Header().Set("Content-Type", "application/geo+json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Write(geojsonData)
		case "/bounds":
			writeBounds(w, h)
		default:
			fs.ServeHTTP(w, r)
		}
	})

	log.Printf("Server starting on http://localhost%s", cfg.addr)
	log.Println("Serving client files from:", cfg.clientDir)
	return http.ListenAndServe(cfg.addr, nil)
}

func writeBounds(w http.ResponseWriter, h shapefile.Header) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(geojson.NewBBox(h.Bounds.Orb())); err != nil {
		log.Printf("Writing bounds: %v", err)
	}
}
