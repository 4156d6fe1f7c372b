package enum

type ThresholdStatus string

const (
	ThresholdNormal   ThresholdStatus = "normal"
	ThresholdWarning  ThresholdStatus = "warning"
	ThresholdCritical ThresholdStatus = "critical"
)

func (t ThresholdStatus) String() string {
	return string(t)
}

type CleanupPhase string

const (
	CleanupPhaseCounting CleanupPhase = "counting"
	CleanupPhaseDeleting CleanupPhase = "deleting"
	CleanupPhaseComplete CleanupPhase = "complete"
)

func (t CleanupPhase) String() string {
	return string(t)
}

type AgeBucket string

const (
	AgeBucketUnderOneYear    AgeBucket = "<1y"
	AgeBucketOneToTwoYears   AgeBucket = "1-2y"
	AgeBucketTwoToThreeYears AgeBucket = "2-3y"
	AgeBucketOverThreeYears  AgeBucket = ">3y"
)

func (t AgeBucket) String() string {
	return string(t)
}

type SizeBucket string

const (
	SizeBucketUnderOneMB  SizeBucket = "<1MB"
	SizeBucketOneToFiveMB SizeBucket = "1-5MB"
	SizeBucketFiveToTenMB SizeBucket = "5-10MB"
	SizeBucketOverTenMB   SizeBucket = ">10MB"
)

func (t SizeBucket) String() string {
	return string(t)
}
