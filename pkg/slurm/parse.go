// Copyright (c) 2019 Sylabs, Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package slurm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	unlimited = "UNLIMITED"

	maxTime        = "MaxTime"
	maxNodes       = "MaxNodes"
	totalNodes     = "TotalNodes"
	maxCPUsPerNode = "MaxCPUsPerNode"
	totalCPUs      = "TotalCPUs"
	maxMemPerNode  = "MaxMemPerNode"

	// SacctFormat is a list of sacct fields ParseSacctResponse expects.
	SacctFormat = "start,end,exitcode,state,jobid,jobname"
)

var partitionNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ParseDuration parses slurm duration string. Possible formats are:
// minutes, minutes:seconds, hours:minutes:seconds, days-hours, days-hours:minutes or days-hours:minutes:seconds
func ParseDuration(duration string) (*time.Duration, error) {
	if duration == unlimited || duration == "" {
		return nil, ErrDurationIsUnlimited
	}

	var err error
	var d time.Duration
	var days, hours, minutes, seconds int64
	parts := strings.Split(duration, ":")
	if len(parts) > 3 {
		return nil, errors.New("invalid duration format")
	}
	i := strings.IndexByte(parts[0], '-')
	if i != -1 {
		days, err = strconv.ParseInt(parts[0][:i], 10, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid amount of days")
		}
		hours, err = strconv.ParseInt(parts[0][i+1:], 10, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid amount of hours")
		}
		if len(parts) > 1 {
			minutes, err = strconv.ParseInt(parts[1], 10, 0)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid amount of minutes")
			}
		}
		if len(parts) > 2 {
			seconds, err = strconv.ParseInt(parts[2], 10, 0)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid amount of seconds")
			}
		}
	} else {
		switch len(parts) {
		case 1:
			minutes, err = strconv.ParseInt(parts[0], 10, 0)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid amount of minutes")
			}
		case 2:
			minutes, err = strconv.ParseInt(parts[0], 10, 0)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid amount of minutes")
			}
			seconds, err = strconv.ParseInt(parts[1], 10, 0)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid amount of seconds")
			}
		case 3:
			hours, err = strconv.ParseInt(parts[0], 10, 0)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid amount of hours")
			}
			minutes, err = strconv.ParseInt(parts[1], 10, 0)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid amount of minutes")
			}
			seconds, err = strconv.ParseInt(parts[2], 10, 0)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid amount of seconds")
			}
		}
	}

	d += time.Hour * 24 * time.Duration(days)
	d += time.Hour * time.Duration(hours)
	d += time.Minute * time.Duration(minutes)
	d += time.Second * time.Duration(seconds)
	return &d, nil
}

// FormatDuration formats d as a slurm time limit, hours:minutes:seconds
// or days-hours:minutes:seconds when d is a day or longer.
// Fractions of a second are rounded up since slurm can't express them.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0:00:00"
	}

	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}

	days := secs / 86400
	secs %= 86400
	hours := secs / 3600
	secs %= 3600
	minutes := secs / 60
	secs %= 60

	if days > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// ParseResources parses scontrol output for a particular partition
// to fetch available resources.
func ParseResources(partitionInfo string) (*Resources, error) {
	partitionInfo = strings.TrimSpace(partitionInfo)
	fields := strings.Fields(partitionInfo)

	fMap := make(map[string][]string)
	for _, f := range fields {
		s := strings.Split(f, "=")
		if len(s) != 2 {
			continue // skipping invalid or empty fields
		}
		fMap[s[0]] = append(fMap[s[0]], strings.Split(s[1], ",")...)
	}

	resources := Resources{
		Nodes:      -1,
		CPUPerNode: -1,
		MemPerNode: -1,
		WallTime:   -1,
	}

	if maxTime, ok := fMap[maxTime]; ok {
		d, err := ParseDuration(maxTime[0])
		if err != nil && err != ErrDurationIsUnlimited {
			return nil, errors.Wrap(err, "could not parse duration")
		}
		if err == nil {
			resources.WallTime = *d
		}
	}

	var err error
	resources.CPUPerNode, err = limitOrTotal(fMap, maxCPUsPerNode, totalCPUs)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse cpus")
	}
	resources.Nodes, err = limitOrTotal(fMap, maxNodes, totalNodes)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse nodes")
	}
	if maxMem, ok := fMap[maxMemPerNode]; ok && maxMem[0] != unlimited {
		mem, err := strconv.ParseInt(maxMem[0], 10, 0)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse max mem")
		}
		resources.MemPerNode = mem
	}

	return &resources, nil
}

// limitOrTotal returns value of the limit field, falling back to
// the total field when the limit is UNLIMITED. It returns -1 when neither is set.
func limitOrTotal(fMap map[string][]string, limit, total string) (int64, error) {
	vv, ok := fMap[limit]
	if !ok {
		return -1, nil
	}
	if vv[0] != unlimited {
		return strconv.ParseInt(vv[0], 10, 0)
	}
	tt, ok := fMap[total]
	if !ok {
		return -1, nil
	}
	return strconv.ParseInt(tt[0], 10, 0)
}

// ParseSacctResponse is a helper that parses sacct output and
// returns results in a convenient form. Output is expected to be
// produced with -p -n -o SacctFormat.
func ParseSacctResponse(raw string) ([]*JobInfo, error) {
	raw = strings.Trim(raw, "\n")
	if raw == "" {
		return nil, nil
	}

	lines := strings.Split(raw, "\n")
	infos := make([]*JobInfo, len(lines))
	for i, l := range lines {
		splitted := strings.Split(l, "|")
		if len(splitted) != 7 {
			return nil, errors.New("output must contain 7 sections")
		}

		startedAt, err := parseTime(splitted[0])
		if err != nil {
			return nil, err
		}

		finishedAt, err := parseTime(splitted[1])
		if err != nil {
			return nil, err
		}

		exitCodeSplitted := strings.Split(splitted[2], ":")
		if len(exitCodeSplitted) != 2 {
			return nil, errors.New("exit code must contain 2 sections")
		}
		exitCode, err := strconv.Atoi(exitCodeSplitted[0])
		if err != nil {
			return nil, err
		}
		signal, err := strconv.Atoi(exitCodeSplitted[1])
		if err != nil {
			return nil, err
		}

		infos[i] = &JobInfo{
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			ExitCode:   exitCode,
			Signal:     signal,
			State:      splitted[3],
			ID:         splitted[4],
			Name:       splitted[5],
		}
	}

	return infos, nil
}

func parseTime(timeStr string) (*time.Time, error) {
	const slurmTimeLayout = "2006-01-02T15:04:05"

	if timeStr == "" || strings.ToLower(timeStr) == "unknown" {
		return nil, nil
	}

	t, err := time.Parse(slurmTimeLayout, timeStr)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// ParseJobID parses sbatch --parsable output, which is "jobid"
// or "jobid;cluster" on federated setups.
func ParseJobID(out string) (int64, error) {
	out = strings.TrimSpace(out)
	if i := strings.IndexByte(out, ';'); i != -1 {
		out = out[:i]
	}

	id, err := strconv.ParseInt(out, 10, 0)
	if err != nil {
		return 0, errors.Wrap(err, "could not parse job id")
	}
	return id, nil
}

// CheckPartitionName returns an error if name can't be a partition name.
// Names are passed to remote shells, so anything unusual is rejected.
func CheckPartitionName(name string) error {
	if !partitionNameRe.MatchString(name) {
		return errors.Errorf("invalid partition name %q", name)
	}
	return nil
}
