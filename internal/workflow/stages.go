// Package workflow 提供管道阶段的有向图编排
package workflow

// StageName 阶段名
type StageName string

// 管道阶段与起止伪状态
const (
	StageStart              StageName = "START"
	StageQueryUnderstanding StageName = "query-understanding"
	StageClarification      StageName = "clarification"
	StageContextEnrichment  StageName = "context-enrichment"
	StageTrendEnrichment    StageName = "trend-enrichment"
	StageRetrieval          StageName = "retrieval"
	StageBundleComposition  StageName = "bundle-composition"
	StageRanking            StageName = "ranking"
	StageSafetyValidation   StageName = "safety-validation"
	StageResponseAssembly   StageName = "response-assembly"
	StageEnd                StageName = "END"
)
