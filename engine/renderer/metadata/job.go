package metadata

/** @brief Describes a type of job */
type JobType int

const (
	/**
	 * @brief A general job that does not have any specific thread requirements.
	 */
	JOB_TYPE_GENERAL JobType = 0x02
	/**
	 * @brief A resource loading job, such as decoding an image from disk.
	 */
	JOB_TYPE_RESOURCE_LOAD JobType = 0x04
)

/**
 * @brief A unit of work for the job system. OnStart receives InputParams and may
 * publish one result on the channel, which is then handed to OnComplete or
 * OnFailure depending on the returned error.
 */
type JobTask struct {
	Type        JobType
	InputParams interface{}

	OnStart              func(params interface{}, results chan<- interface{}) error
	OnComplete           func(results <-chan interface{})
	OnFailure            func(results <-chan interface{}, err error)
	OnCompletionCallback func()
}
