package casemgmt

import (
	"fmt"
	"log"
	"net/http"

	"SigmaCollect/internal/serviceiface"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CaseMgmtService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewCaseMgmtService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &CaseMgmtService{config: cfg, pool: pool}
}

func (s *CaseMgmtService) Name() string {
	return "casemgmt"
}

func (s *CaseMgmtService) Start() error {
	port := 8143
	if s.config != nil {
		if p, ok := s.config["port"].(int); ok && p > 0 {
			port = p
		}
	}
	go StartCaseMgmtService(s.pool, port)
	return nil
}

func (s *CaseMgmtService) Stop() error {
	return nil
}

func StartCaseMgmtService(pool *pgxpool.Pool, port int) {
	router := mux.NewRouter()

	router.HandleFunc("/casemgmt/cases", GetCases(pool)).Methods("POST")
	router.HandleFunc("/casemgmt/assign", BulkAssignCases(pool)).Methods("POST")
	router.HandleFunc("/casemgmt/stage", BulkUpdateStage(pool)).Methods("POST")

	addr := fmt.Sprintf(":%d", port)
	log.Println("CaseMgmt Service started on", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("CaseMgmt Service failed: %v", err)
	}
}
